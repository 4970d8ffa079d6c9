package game

import (
	"math"
	"sync"
	"time"

	"srg-miniapp-backend/internal/models"
)

const (
	TapEnergyCost   = 0.1
	TapMinEnergy    = 5.0
	tapSpotRadius   = 10.0
	tapSpotLimit    = 20
	tapLockDuration = 2 * time.Second
)

// Tap spends a little energy for an immediate SRG reward. The reward goes to
// both the balance and the lifetime counter.
func Tap(s *models.PlayerSnapshot, ranks RankTable) (*models.PlayerSnapshot, float64, error) {
	if s == nil {
		return nil, 0, ErrNoSnapshot
	}
	if finiteOrZero(s.EnergyPool) <= TapMinEnergy {
		return nil, 0, ErrEnergyTooLow
	}

	next := s.Clone()
	next.EnergyPool = math.Max(next.EnergyPool-TapEnergyCost, 0)

	reward := math.Max(finiteOrZero(next.ClickPower), 0) * (1 + ranks.Bonus(next.TotalSrgEarned))
	next.SrgBalance += reward
	next.TotalSrgEarned += reward
	next.Rank = ranks.Resolve(next.TotalSrgEarned).Title
	return next, reward, nil
}

// TapGuard flags taps landing on the same spot over and over. After
// tapSpotLimit such taps it ignores input for tapLockDuration. It is a
// heuristic, not an enforcement boundary.
type TapGuard struct {
	mu          sync.Mutex
	lastX       float64
	lastY       float64
	hasLast     bool
	sameSpot    int
	lockedUntil time.Time
}

// Allow reports whether a tap at (x, y) should be processed.
func (g *TapGuard) Allow(x, y float64, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Before(g.lockedUntil) {
		return false
	}

	if g.hasLast && math.Hypot(x-g.lastX, y-g.lastY) < tapSpotRadius {
		g.sameSpot++
	} else {
		g.sameSpot = 0
	}
	g.lastX, g.lastY, g.hasLast = x, y, true

	if g.sameSpot >= tapSpotLimit {
		g.lockedUntil = now.Add(tapLockDuration)
		g.sameSpot = 0
		return false
	}
	return true
}
