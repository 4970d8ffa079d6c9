package game

import "errors"

// Policy errors. A transition that returns one of these leaves the input
// snapshot untouched.
var (
	ErrNoSnapshot            = errors.New("no snapshot")
	ErrEnergyTooLow          = errors.New("energy too low to tap")
	ErrUnknownDevice         = errors.New("unknown device type")
	ErrInsufficientSilver    = errors.New("insufficient silver balance")
	ErrInsufficientGold      = errors.New("insufficient gold balance")
	ErrInsufficientSRG       = errors.New("insufficient SRG balance")
	ErrNoFreeSlot            = errors.New("no free unlocked slot")
	ErrInvalidSlot           = errors.New("invalid slot")
	ErrSlotEmpty             = errors.New("slot is empty")
	ErrAllSlotsUnlocked      = errors.New("all slots already unlocked")
	ErrInvalidCategory       = errors.New("invalid device category")
	ErrInvalidExchangeAmount = errors.New("exchange amount must be a positive multiple of 200")
	ErrWithdrawalTooSmall    = errors.New("withdrawal below minimum")
	ErrInvalidAddress        = errors.New("invalid withdrawal address")
	ErrInvalidMethod         = errors.New("invalid withdrawal method")
	ErrInvalidDepositAmount  = errors.New("invalid deposit amount")
	ErrDailyAlreadyClaimed   = errors.New("daily reward already claimed today")
	ErrUnknownTask           = errors.New("unknown task")
	ErrTaskAlreadyClaimed    = errors.New("task already claimed")
	ErrNotReferred           = errors.New("friend is not in referral list")
	ErrAlreadyReferred       = errors.New("friend already in referral list")
	ErrRequestNotFound       = errors.New("request not found")
	ErrRequestFinalized      = errors.New("request already finalized")
	ErrInvalidAmount         = errors.New("invalid amount")
)
