package game

import (
	"fmt"
	"math"
	"sort"
)

type RankTier struct {
	Title     string  `json:"title" mapstructure:"title"`
	Threshold float64 `json:"threshold" mapstructure:"threshold"`
	Bonus     float64 `json:"bonus" mapstructure:"bonus"` // 0.05 = +5%
}

// RankTable is ordered by ascending threshold; the first tier starts at 0.
type RankTable []RankTier

func DefaultRankTable() RankTable {
	return RankTable{
		{Title: "rank1", Threshold: 0, Bonus: 0},
		{Title: "rank2", Threshold: 50000, Bonus: 0.01},
		{Title: "rank3", Threshold: 100000, Bonus: 0.03},
		{Title: "rank4", Threshold: 200000, Bonus: 0.05},
		{Title: "rank5", Threshold: 400000, Bonus: 0.07},
		{Title: "rank6", Threshold: 800000, Bonus: 0.10},
		{Title: "rank7", Threshold: 1600000, Bonus: 0.15},
		{Title: "rank8", Threshold: 3200000, Bonus: 0.20},
		{Title: "rank9", Threshold: 6400000, Bonus: 0.25},
		{Title: "rank10", Threshold: 12800000, Bonus: 0.40},
	}
}

func (rt RankTable) Validate() error {
	if len(rt) == 0 {
		return fmt.Errorf("rank table is empty")
	}
	if rt[0].Threshold != 0 {
		return fmt.Errorf("first rank must start at 0, got %v", rt[0].Threshold)
	}
	for i := 1; i < len(rt); i++ {
		if rt[i].Threshold <= rt[i-1].Threshold {
			return fmt.Errorf("rank thresholds must be strictly ascending at %s", rt[i].Title)
		}
	}
	for _, t := range rt {
		if t.Bonus < 0 || math.IsNaN(t.Bonus) {
			return fmt.Errorf("rank %s has invalid bonus", t.Title)
		}
	}
	return nil
}

// Resolve returns the highest tier whose threshold is <= totalEarned.
// Negative or NaN input resolves to the lowest tier.
func (rt RankTable) Resolve(totalEarned float64) RankTier {
	if len(rt) == 0 {
		return RankTier{}
	}
	if math.IsNaN(totalEarned) || totalEarned < 0 {
		return rt[0]
	}
	i := sort.Search(len(rt), func(i int) bool {
		return rt[i].Threshold > totalEarned
	})
	if i == 0 {
		return rt[0]
	}
	return rt[i-1]
}

func (rt RankTable) Bonus(totalEarned float64) float64 {
	return rt.Resolve(totalEarned).Bonus
}

// NextThreshold returns the first threshold strictly above totalEarned.
func (rt RankTable) NextThreshold(totalEarned float64) (float64, bool) {
	if math.IsNaN(totalEarned) {
		totalEarned = 0
	}
	i := sort.Search(len(rt), func(i int) bool {
		return rt[i].Threshold > totalEarned
	})
	if i >= len(rt) {
		return 0, false
	}
	return rt[i].Threshold, true
}
