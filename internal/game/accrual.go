package game

import (
	"math"
	"time"

	"srg-miniapp-backend/internal/models"
)

// Rates are per-hour figures derived from the unlocked, occupied slots.
type Rates struct {
	EnergyProduction  float64
	EnergyConsumption float64
	SRGBase           float64
	Unknown           []string
}

func (r Rates) NetEnergy() float64 {
	return r.EnergyProduction - r.EnergyConsumption
}

// ComputeRates sums the contribution of every device in an unlocked slot.
// Devices whose type is missing from the catalog contribute nothing and are
// reported in Unknown.
func ComputeRates(s *models.PlayerSnapshot, cat *Catalog) Rates {
	var r Rates
	if s == nil {
		return r
	}

	for _, category := range []models.DeviceCategory{models.CategoryMiner, models.CategoryGenerator} {
		slots := s.Slots(category)
		limit := clampInt(s.Unlocked(category), 0, len(slots))
		for i := 0; i < limit; i++ {
			dev := slots[i]
			if dev == nil || dev.TypeID == "" {
				continue
			}
			entry, ok := cat.FindDevice(dev.TypeID)
			if !ok || entry.Category != category {
				r.Unknown = append(r.Unknown, dev.TypeID)
				continue
			}
			switch category {
			case models.CategoryMiner:
				r.EnergyConsumption += finiteOrZero(entry.EnergyPerHour())
				r.SRGBase += finiteOrZero(entry.SRGPerHour())
			case models.CategoryGenerator:
				r.EnergyProduction += finiteOrZero(entry.EnergyPerHour())
			}
		}
	}
	return r
}

// EffectiveSRGPerHour applies the rank bonus for the given lifetime total.
func EffectiveSRGPerHour(r Rates, ranks RankTable, totalEarned float64) float64 {
	return r.SRGBase * (1 + ranks.Bonus(totalEarned))
}

// Tick applies elapsed wall-clock time to a copy of s. The same function
// serves the one-second live tick and the single offline catch-up tick.
//
// SRG is only produced when the pool is positive at the start of the tick.
// Within a tick, production stops when a draining pool reaches zero, and the
// rank bonus is re-resolved each time lifetime earnings cross a threshold.
func Tick(s *models.PlayerSnapshot, cat *Catalog, ranks RankTable, elapsed time.Duration) *models.PlayerSnapshot {
	next := s.Clone()
	if next == nil {
		return nil
	}
	if elapsed <= 0 {
		return next
	}
	hours := elapsed.Hours()
	rates := ComputeRates(next, cat)

	startPool := finiteOrZero(next.EnergyPool)
	maxPool := math.Max(finiteOrZero(next.MaxEnergyPool), 0)
	canProduce := startPool > 0
	net := rates.NetEnergy()

	next.EnergyPool = clampFloat(startPool+net*hours, 0, maxPool)

	producing := 0.0
	if canProduce {
		producing = hours
		if net < 0 {
			if depletion := startPool / -net; depletion < producing {
				producing = depletion
			}
		}
	}

	total := math.Max(finiteOrZero(next.TotalSrgEarned), 0)
	gained := accrueSRG(rates.SRGBase, ranks, total, producing)

	next.SrgBalance = finiteOrZero(next.SrgBalance) + gained
	next.TotalSrgEarned = total + gained
	next.Rank = ranks.Resolve(next.TotalSrgEarned).Title
	next.LastUpdate += elapsed.Milliseconds()
	return next
}

// accrueSRG integrates base×(1+bonus) over hours, splitting the interval at
// every rank threshold crossed on the way.
func accrueSRG(base float64, ranks RankTable, total, hours float64) float64 {
	if base <= 0 || hours <= 0 {
		return 0
	}
	gained := 0.0
	remaining := hours
	for i := 0; i <= len(ranks) && remaining > 0; i++ {
		rate := base * (1 + ranks.Bonus(total))
		threshold, ok := ranks.NextThreshold(total)
		if !ok {
			gained += rate * remaining
			break
		}
		need := (threshold - total) / rate
		if need >= remaining {
			gained += rate * remaining
			break
		}
		gained += threshold - total
		total = threshold
		remaining -= need
	}
	return gained
}

// Advance ticks s forward to now. A clock that went backwards yields no
// accrual and never rewinds LastUpdate.
func Advance(s *models.PlayerSnapshot, cat *Catalog, ranks RankTable, now time.Time) *models.PlayerSnapshot {
	if s == nil {
		return nil
	}
	nowMs := models.UnixMillis(now)
	elapsed := time.Duration(nowMs-s.LastUpdate) * time.Millisecond
	if s.LastUpdate <= 0 || elapsed < 0 {
		elapsed = 0
	}
	next := Tick(s, cat, ranks, elapsed)
	if nowMs > next.LastUpdate {
		next.LastUpdate = nowMs
	}
	return next
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
