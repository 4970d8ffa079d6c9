package game_test

import (
	"math"
	"testing"

	"srg-miniapp-backend/internal/game"
)

func TestRankBoundary(t *testing.T) {
	ranks := game.RankTable{
		{Title: "low", Threshold: 0, Bonus: 0},
		{Title: "mid", Threshold: 1000, Bonus: 0.05},
		{Title: "high", Threshold: 5000, Bonus: 0.10},
	}

	tests := []struct {
		total float64
		want  float64
	}{
		{0, 0},
		{999.999, 0},
		{1000, 0.05},
		{4999.99, 0.05},
		{5000, 0.10},
		{1e12, 0.10},
		{-5, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ranks.Resolve(tt.total).Bonus; got != tt.want {
			t.Errorf("Resolve(%v): expected bonus %v, got %v", tt.total, tt.want, got)
		}
	}
}

func TestRankNextThreshold(t *testing.T) {
	ranks := game.DefaultRankTable()

	next, ok := ranks.NextThreshold(50000)
	if !ok || next != 100000 {
		t.Errorf("Expected next threshold 100000, got %v (%v)", next, ok)
	}
	if _, ok := ranks.NextThreshold(12800000); ok {
		t.Error("Top rank should have no next threshold")
	}
}

func TestRankTableValidate(t *testing.T) {
	if err := game.DefaultRankTable().Validate(); err != nil {
		t.Errorf("Default table should be valid: %v", err)
	}

	bad := game.RankTable{{Threshold: 10}}
	if err := bad.Validate(); err == nil {
		t.Error("Table not starting at 0 should fail")
	}

	unordered := game.RankTable{{Threshold: 0}, {Threshold: 100}, {Threshold: 50}}
	if err := unordered.Validate(); err == nil {
		t.Error("Unordered table should fail")
	}

	var empty game.RankTable
	if got := empty.Resolve(100); got.Bonus != 0 {
		t.Errorf("Empty table should resolve to zero bonus, got %v", got.Bonus)
	}
}
