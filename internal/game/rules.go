package game

import (
	"fmt"
	"time"

	"srg-miniapp-backend/internal/models"
)

const (
	ExchangeRatio         = 200.0
	MinWithdrawalGold     = 100.0
	MinAddressLength      = 6
	SilverPerUSD          = 2000.0
	ReferralReward        = 200.0
	SponsorCommissionRate = 0.10

	SaleGracePeriod = 15 * time.Minute
	SaleRefundRate  = 0.7
)

type DailyReward struct {
	Day    int     `json:"day"`
	Silver float64 `json:"silver"`
	Gold   float64 `json:"gold"`
}

// DailyRewards is indexed by streak % 7.
var DailyRewards = []DailyReward{
	{Day: 1, Silver: 50},
	{Day: 2, Silver: 100},
	{Day: 3, Silver: 150, Gold: 10},
	{Day: 4, Silver: 200},
	{Day: 5, Silver: 300, Gold: 30},
	{Day: 6, Silver: 400},
	{Day: 7, Silver: 500, Gold: 50},
}

type Task struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Silver float64 `json:"silver"`
}

var Tasks = []Task{
	{ID: "t1", Title: "Join Channel", Silver: 500},
}

func FindTask(id string) (Task, bool) {
	for _, t := range Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// UnlockCost prices the slot at index i of a category.
func UnlockCost(category models.DeviceCategory, i int) (float64, error) {
	switch category {
	case models.CategoryMiner:
		switch {
		case i < models.DefaultUnlockedMinerSlots:
			return 0, nil
		case i < 10:
			return float64(1000 + 100*i), nil
		default:
			return float64(5000 + 500*i), nil
		}
	case models.CategoryGenerator:
		if i < models.DefaultUnlockedGeneratorSlots {
			return 0, nil
		}
		return float64(1000 + 200*i), nil
	}
	return 0, ErrInvalidCategory
}

func ReferralTaskID(friendID int64) string {
	return fmt.Sprintf("ref_reward_%d", friendID)
}
