package game_test

import (
	"math"
	"testing"
	"time"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testCatalog() *game.Catalog {
	return game.NewCatalog([]game.DeviceEntry{
		{ID: "x1", Category: models.CategoryMiner, SilverCost: 1000, SRGPerDay: 2400, EnergyPerDay: 24},
		{ID: "fast", Category: models.CategoryMiner, SilverCost: 1000, SRGPerDay: 864000, EnergyPerDay: 24},
		{ID: "hog", Category: models.CategoryMiner, SilverCost: 1000, SRGPerDay: 2400, EnergyPerDay: 240000},
		{ID: "gen", Category: models.CategoryGenerator, SilverCost: 500, EnergyPerDay: -48},
		{ID: "biggen", Category: models.CategoryGenerator, SilverCost: 500, EnergyPerDay: -480000},
	})
}

func newSnapshot() *models.PlayerSnapshot {
	return models.NewSnapshot(42, "tester", "Tester", testEpoch)
}

func install(s *models.PlayerSnapshot, category models.DeviceCategory, slot int, typeID string) {
	s.Slots(category)[slot] = &models.DeviceInstance{
		ID:           typeID + "-inst",
		TypeID:       typeID,
		Level:        1,
		PurchaseTime: models.UnixMillis(testEpoch),
	}
}

func TestComputeRates(t *testing.T) {
	s := newSnapshot()
	install(s, models.CategoryMiner, 0, "x1")
	install(s, models.CategoryMiner, 1, "X1 ")
	install(s, models.CategoryGenerator, 0, "gen")

	r := game.ComputeRates(s, testCatalog())

	if math.Abs(r.SRGBase-200) > 1e-9 {
		t.Errorf("Expected SRG base 200/h, got %f", r.SRGBase)
	}
	if math.Abs(r.EnergyConsumption-2) > 1e-9 {
		t.Errorf("Expected consumption 2/h, got %f", r.EnergyConsumption)
	}
	if math.Abs(r.EnergyProduction-2) > 1e-9 {
		t.Errorf("Expected production 2/h, got %f", r.EnergyProduction)
	}
	if len(r.Unknown) != 0 {
		t.Errorf("Expected no unknown devices, got %v", r.Unknown)
	}
}

func TestComputeRatesIgnoresLockedAndUnknown(t *testing.T) {
	s := newSnapshot()
	install(s, models.CategoryMiner, 0, "ghost")
	install(s, models.CategoryMiner, 10, "x1") // locked
	install(s, models.CategoryGenerator, 0, "x1")

	r := game.ComputeRates(s, testCatalog())

	if r.SRGBase != 0 || r.EnergyConsumption != 0 || r.EnergyProduction != 0 {
		t.Errorf("Expected zero rates, got %+v", r)
	}
	if len(r.Unknown) != 2 {
		t.Errorf("Expected 2 unknown devices, got %v", r.Unknown)
	}
}

func TestEnergyClamp(t *testing.T) {
	tests := []struct {
		name   string
		miners []string
		gens   []string
		pool   float64
	}{
		{"surplus", nil, []string{"biggen"}, 990},
		{"deficit", []string{"hog"}, nil, 3},
		{"balanced", []string{"x1"}, []string{"gen"}, 500},
		{"idle", nil, nil, 1000},
	}

	cat := testCatalog()
	ranks := game.DefaultRankTable()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSnapshot()
			s.EnergyPool = tt.pool
			for i, id := range tt.miners {
				install(s, models.CategoryMiner, i, id)
			}
			for i, id := range tt.gens {
				install(s, models.CategoryGenerator, i, id)
			}
			for _, step := range []time.Duration{time.Second, time.Minute, 5 * time.Hour, 72 * time.Hour} {
				s = game.Tick(s, cat, ranks, step)
				if s.EnergyPool < 0 || s.EnergyPool > s.MaxEnergyPool {
					t.Fatalf("Energy out of range after %v: %f", step, s.EnergyPool)
				}
			}
		})
	}
}

func TestZeroEnergyGate(t *testing.T) {
	s := newSnapshot()
	s.EnergyPool = 0
	install(s, models.CategoryMiner, 0, "x1")
	install(s, models.CategoryGenerator, 0, "biggen")

	next := game.Tick(s, testCatalog(), game.DefaultRankTable(), time.Second)

	if next.SrgBalance != 0 || next.TotalSrgEarned != 0 {
		t.Errorf("Expected no SRG with an empty pool, got %f", next.SrgBalance)
	}
	if next.EnergyPool <= 0 {
		t.Errorf("Expected energy to recover, got %f", next.EnergyPool)
	}

	again := game.Tick(next, testCatalog(), game.DefaultRankTable(), time.Second)
	if again.SrgBalance <= 0 {
		t.Error("Expected SRG once the pool is positive")
	}
}

func TestTickAdditivity(t *testing.T) {
	tests := []struct {
		name      string
		miner     string
		pool      float64
		total     float64
		elapsed   time.Duration
		tolerance float64
	}{
		{"steady", "x1", 500, 0, time.Hour, 1e-6},
		{"depletion", "x1", 1, 0, 2 * time.Hour, 0.05},
		{"rank crossing", "fast", 500, 49990, time.Hour, 0.2},
	}

	cat := testCatalog()
	ranks := game.DefaultRankTable()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSnapshot()
			s.EnergyPool = tt.pool
			s.TotalSrgEarned = tt.total
			install(s, models.CategoryMiner, 0, tt.miner)

			big := game.Tick(s, cat, ranks, tt.elapsed)

			small := s
			steps := int(tt.elapsed / time.Second)
			for i := 0; i < steps; i++ {
				small = game.Tick(small, cat, ranks, time.Second)
			}

			if math.Abs(big.SrgBalance-small.SrgBalance) > tt.tolerance {
				t.Errorf("SRG mismatch: one tick %f, %d ticks %f", big.SrgBalance, steps, small.SrgBalance)
			}
			if math.Abs(big.EnergyPool-small.EnergyPool) > 1e-6 {
				t.Errorf("Energy mismatch: one tick %f, %d ticks %f", big.EnergyPool, steps, small.EnergyPool)
			}
			if big.LastUpdate != small.LastUpdate {
				t.Errorf("LastUpdate mismatch: %d vs %d", big.LastUpdate, small.LastUpdate)
			}
		})
	}
}

func TestTickAppliesRankBonusAfterThreshold(t *testing.T) {
	s := newSnapshot()
	s.EnergyPool = 500
	s.TotalSrgEarned = 50000
	install(s, models.CategoryMiner, 0, "x1")

	next := game.Tick(s, testCatalog(), game.DefaultRankTable(), time.Hour)

	if math.Abs(next.SrgBalance-101) > 1e-6 {
		t.Errorf("Expected 101 SRG with 1%% bonus, got %f", next.SrgBalance)
	}
	if next.Rank != "rank2" {
		t.Errorf("Expected rank2, got %s", next.Rank)
	}
}

func TestOfflineCatchUp(t *testing.T) {
	s := newSnapshot()
	s.EnergyPool = 500
	s.LastUpdate = models.UnixMillis(testEpoch.Add(-time.Hour))
	install(s, models.CategoryMiner, 0, "x1")

	next := game.Advance(s, testCatalog(), game.DefaultRankTable(), testEpoch)

	if math.Abs(next.SrgBalance-100) > 1e-9 {
		t.Errorf("Expected 100 SRG after one hour offline, got %f", next.SrgBalance)
	}
	if next.TotalSrgEarned != next.SrgBalance {
		t.Errorf("Lifetime counter %f should match balance %f", next.TotalSrgEarned, next.SrgBalance)
	}
	if next.LastUpdate != models.UnixMillis(testEpoch) {
		t.Errorf("Expected LastUpdate at now, got %d", next.LastUpdate)
	}
	if s.SrgBalance != 0 {
		t.Error("Advance must not modify its input")
	}
}

func TestAdvanceBackwardsClock(t *testing.T) {
	s := newSnapshot()
	s.EnergyPool = 500
	install(s, models.CategoryMiner, 0, "x1")

	next := game.Advance(s, testCatalog(), game.DefaultRankTable(), testEpoch.Add(-time.Hour))

	if next.SrgBalance != 0 {
		t.Errorf("Expected no accrual, got %f", next.SrgBalance)
	}
	if next.LastUpdate != s.LastUpdate {
		t.Errorf("LastUpdate must not rewind: %d -> %d", s.LastUpdate, next.LastUpdate)
	}
}

func TestLifetimeCounterMonotonic(t *testing.T) {
	cat := game.DefaultCatalog()
	ranks := game.DefaultRankTable()

	s := newSnapshot()
	s.EnergyPool = 500
	s.SrgBalance = 1000
	s.TotalSrgEarned = 1000
	s.SilverBalance = 100000

	check := func(op string, next *models.PlayerSnapshot) {
		t.Helper()
		if next.TotalSrgEarned < s.TotalSrgEarned {
			t.Fatalf("%s decreased lifetime counter: %f -> %f", op, s.TotalSrgEarned, next.TotalSrgEarned)
		}
		s = next
	}

	next, _, err := game.Purchase(s, cat, "m1", testEpoch)
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	check("purchase", next)

	check("tick", game.Tick(s, cat, ranks, 10*time.Minute))

	next, _, err = game.Tap(s, ranks)
	if err != nil {
		t.Fatalf("Tap failed: %v", err)
	}
	check("tap", next)

	next, err = game.Exchange(s, 800)
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	check("exchange", next)

	next, _, err = game.Sell(s, cat, models.CategoryMiner, 0, testEpoch.Add(time.Hour))
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	check("sell", next)
}
