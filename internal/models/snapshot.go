package models

type DeviceCategory string

const (
	CategoryMiner     DeviceCategory = "miner"
	CategoryGenerator DeviceCategory = "generator"
)

// SlotCount is the fixed length of both slot rows.
const SlotCount = 30

type DeviceInstance struct {
	ID           string `json:"id"`
	TypeID       string `json:"type_id"`
	Level        int    `json:"level"`
	PurchaseTime int64  `json:"purchase_time"` // unix millis
}

type Referral struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Status   string  `json:"status"` // ACTIVE, PASSIVE
	Earned   float64 `json:"earned"`
}

// PlayerSnapshot is the whole persisted state of one player. It is read,
// modified and written as a single unit.
type PlayerSnapshot struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	FarmName    string `json:"farm_name"`

	SrgBalance     float64 `json:"srg_balance"`
	SilverBalance  float64 `json:"silver_balance"`
	GoldBalance    float64 `json:"gold_balance"`
	TotalSrgEarned float64 `json:"total_srg_earned"`
	ClickPower     float64 `json:"click_power"`

	EnergyPool    float64 `json:"energy_pool"`
	MaxEnergyPool float64 `json:"max_energy_pool"`

	MinerSlots             []*DeviceInstance `json:"miner_slots"`
	GeneratorSlots         []*DeviceInstance `json:"generator_slots"`
	UnlockedMinerSlots     int               `json:"unlocked_miner_slots"`
	UnlockedGeneratorSlots int               `json:"unlocked_generator_slots"`

	WithdrawalRequests []*WithdrawalRequest `json:"withdrawal_requests"`
	DepositRequests    []*DepositRequest    `json:"deposit_requests"`

	Rank             string     `json:"rank"`
	ReferredBy       int64      `json:"referred_by,omitempty"`
	Referrals        []Referral `json:"referrals"`
	CompletedTaskIDs []string   `json:"completed_task_ids"`
	DailyStreak      int        `json:"daily_streak"`
	LastDailyClaim   int64      `json:"last_daily_claim"`

	LastUpdate int64 `json:"last_update"` // unix millis
	CreatedAt  int64 `json:"created_at"`
	Version    int64 `json:"version"`
}

// Slots returns the slot row for a category. Unknown categories have no row.
func (s *PlayerSnapshot) Slots(category DeviceCategory) []*DeviceInstance {
	switch category {
	case CategoryMiner:
		return s.MinerSlots
	case CategoryGenerator:
		return s.GeneratorSlots
	}
	return nil
}

// Unlocked returns how many leading slots of the row are usable.
func (s *PlayerSnapshot) Unlocked(category DeviceCategory) int {
	switch category {
	case CategoryMiner:
		return s.UnlockedMinerSlots
	case CategoryGenerator:
		return s.UnlockedGeneratorSlots
	}
	return 0
}

func (s *PlayerSnapshot) SetUnlocked(category DeviceCategory, n int) {
	switch category {
	case CategoryMiner:
		s.UnlockedMinerSlots = n
	case CategoryGenerator:
		s.UnlockedGeneratorSlots = n
	}
}

func (s *PlayerSnapshot) FindWithdrawal(id string) *WithdrawalRequest {
	for _, r := range s.WithdrawalRequests {
		if r != nil && r.ID == id {
			return r
		}
	}
	return nil
}

func (s *PlayerSnapshot) FindDeposit(id string) *DepositRequest {
	for _, r := range s.DepositRequests {
		if r != nil && r.ID == id {
			return r
		}
	}
	return nil
}

func (s *PlayerSnapshot) HasCompletedTask(id string) bool {
	for _, t := range s.CompletedTaskIDs {
		if t == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; state transitions work on clones so the
// caller's snapshot is never modified.
func (s *PlayerSnapshot) Clone() *PlayerSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.MinerSlots = cloneSlots(s.MinerSlots)
	c.GeneratorSlots = cloneSlots(s.GeneratorSlots)

	if s.WithdrawalRequests != nil {
		c.WithdrawalRequests = make([]*WithdrawalRequest, len(s.WithdrawalRequests))
		for i, r := range s.WithdrawalRequests {
			if r != nil {
				cp := *r
				c.WithdrawalRequests[i] = &cp
			}
		}
	}
	if s.DepositRequests != nil {
		c.DepositRequests = make([]*DepositRequest, len(s.DepositRequests))
		for i, r := range s.DepositRequests {
			if r != nil {
				cp := *r
				c.DepositRequests[i] = &cp
			}
		}
	}
	if s.Referrals != nil {
		c.Referrals = append([]Referral(nil), s.Referrals...)
	}
	if s.CompletedTaskIDs != nil {
		c.CompletedTaskIDs = append([]string(nil), s.CompletedTaskIDs...)
	}
	return &c
}

func cloneSlots(slots []*DeviceInstance) []*DeviceInstance {
	if slots == nil {
		return nil
	}
	out := make([]*DeviceInstance, len(slots))
	for i, d := range slots {
		if d != nil {
			cp := *d
			out[i] = &cp
		}
	}
	return out
}
