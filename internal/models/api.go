package models

type TapRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PurchaseRequest struct {
	TypeID string `json:"type_id" binding:"required"`
}

type SellRequest struct {
	Category DeviceCategory `json:"category" binding:"required,oneof=miner generator"`
	Slot     *int           `json:"slot" binding:"required,min=0,max=29"`
}

type UnlockSlotRequest struct {
	Category DeviceCategory `json:"category" binding:"required,oneof=miner generator"`
}

type ExchangeRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type WithdrawalCreateRequest struct {
	Amount  float64          `json:"amount" binding:"required,gt=0"`
	Method  WithdrawalMethod `json:"method" binding:"required,oneof=USDT TON"`
	Address string           `json:"address" binding:"required"`
}

type DepositCreateRequest struct {
	AmountSilver float64 `json:"amount_silver" binding:"required,gt=0"`
}

type TaskClaimRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

type ReferralClaimRequest struct {
	FriendID int64 `json:"friend_id" binding:"required"`
}

type ApproveDepositRequest struct {
	CreditedAmount *float64 `json:"credited_amount"`
}

type AdminCreditRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// RatesView is the per-hour production summary shown next to balances.
type RatesView struct {
	EnergyProductionPerHour  float64  `json:"energy_production_per_hour"`
	EnergyConsumptionPerHour float64  `json:"energy_consumption_per_hour"`
	SrgPerHour               float64  `json:"srg_per_hour"`
	RankBonus                float64  `json:"rank_bonus"`
	UnknownDevices           []string `json:"unknown_devices,omitempty"`
}

type StateResponse struct {
	Snapshot    *PlayerSnapshot `json:"snapshot"`
	Rates       RatesView       `json:"rates"`
	PendingSync bool            `json:"pending_sync"`
}
