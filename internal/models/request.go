package models

type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusPaid      RequestStatus = "PAID"      // withdrawal approved
	StatusCompleted RequestStatus = "COMPLETED" // deposit approved
	StatusRejected  RequestStatus = "REJECTED"
)

type WithdrawalMethod string

const (
	WithdrawalUSDT WithdrawalMethod = "USDT"
	WithdrawalTON  WithdrawalMethod = "TON"
)

// WithdrawalRequest reserves gold when created; only an admin finalizes it.
type WithdrawalRequest struct {
	ID               string           `json:"id"`
	UserID           int64            `json:"user_id"`
	Amount           float64          `json:"amount"` // gold
	Method           WithdrawalMethod `json:"method"`
	Address          string           `json:"address"`
	Status           RequestStatus    `json:"status"`
	Timestamp        int64            `json:"timestamp"`
	TelegramUsername string           `json:"telegram_username,omitempty"`
}

type DepositRequest struct {
	ID               string        `json:"id"`
	UserID           int64         `json:"user_id"`
	AmountSilver     float64       `json:"amount_silver"`
	CreditedSilver   float64       `json:"credited_silver,omitempty"`
	CostUSDT         float64       `json:"cost_usdt"`
	Memo             string        `json:"memo"`
	Status           RequestStatus `json:"status"`
	Timestamp        int64         `json:"timestamp"`
	TelegramUsername string        `json:"telegram_username,omitempty"`
}
