package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultSilverBalance          = 3000
	DefaultEnergyPool             = 20
	DefaultMaxEnergyPool          = 1000
	DefaultClickPower             = 1
	DefaultUnlockedMinerSlots     = 4
	DefaultUnlockedGeneratorSlots = 2
	DefaultLanguage               = "EN"
)

func GenerateDeviceID() string {
	return fmt.Sprintf("dev_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateWithdrawalID() string {
	return fmt.Sprintf("wd_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateDepositID() string {
	return fmt.Sprintf("dep_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateSessionID() string {
	return uuid.New().String()
}

// UnixMillis converts a time to the millisecond timestamps stored in snapshots.
func UnixMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func FromUnixMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond))
}

// DepositMemo is the transfer memo a player must attach to a manual deposit.
func DepositMemo(userID int64) string {
	if userID == 0 {
		return "SRG-USER"
	}
	return fmt.Sprintf("SRG-%d", userID)
}

// NewSnapshot builds the first-login state for a player.
func NewSnapshot(userID int64, username, displayName string, now time.Time) *PlayerSnapshot {
	ts := UnixMillis(now)
	return &PlayerSnapshot{
		UserID:                 userID,
		Username:               username,
		DisplayName:            displayName,
		Language:               DefaultLanguage,
		FarmName:               fmt.Sprintf("%s Base", displayName),
		SilverBalance:          DefaultSilverBalance,
		ClickPower:             DefaultClickPower,
		EnergyPool:             DefaultEnergyPool,
		MaxEnergyPool:          DefaultMaxEnergyPool,
		MinerSlots:             make([]*DeviceInstance, SlotCount),
		GeneratorSlots:         make([]*DeviceInstance, SlotCount),
		UnlockedMinerSlots:     DefaultUnlockedMinerSlots,
		UnlockedGeneratorSlots: DefaultUnlockedGeneratorSlots,
		WithdrawalRequests:     []*WithdrawalRequest{},
		DepositRequests:        []*DepositRequest{},
		Referrals:              []Referral{},
		CompletedTaskIDs:       []string{},
		LastUpdate:             ts,
		CreatedAt:              ts,
	}
}
