package models_test

import (
	"strings"
	"testing"
	"time"

	"srg-miniapp-backend/internal/models"
)

func TestNewSnapshot(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := models.NewSnapshot(42, "alice", "Alice", now)

	if s.SilverBalance != models.DefaultSilverBalance {
		t.Errorf("Expected %d silver, got %v", models.DefaultSilverBalance, s.SilverBalance)
	}
	if s.EnergyPool != 20 || s.MaxEnergyPool != 1000 {
		t.Errorf("Unexpected energy defaults: %v/%v", s.EnergyPool, s.MaxEnergyPool)
	}
	if len(s.MinerSlots) != models.SlotCount || len(s.GeneratorSlots) != models.SlotCount {
		t.Errorf("Slot rows must have %d entries", models.SlotCount)
	}
	if s.Unlocked(models.CategoryMiner) != 4 || s.Unlocked(models.CategoryGenerator) != 2 {
		t.Errorf("Unexpected unlocked slots: %d/%d", s.UnlockedMinerSlots, s.UnlockedGeneratorSlots)
	}
	if s.LastUpdate != models.UnixMillis(now) || s.CreatedAt != s.LastUpdate {
		t.Errorf("Timestamps not set from now: %d", s.LastUpdate)
	}
	if s.FarmName != "Alice Base" {
		t.Errorf("Unexpected farm name %q", s.FarmName)
	}
	if s.Unlocked("tractor") != 0 || s.Slots("tractor") != nil {
		t.Error("Unknown category should have no slots")
	}
}

func TestSnapshotClone(t *testing.T) {
	s := models.NewSnapshot(42, "alice", "Alice", time.Now())
	s.MinerSlots[0] = &models.DeviceInstance{ID: "d1", TypeID: "m1", Level: 1}
	s.WithdrawalRequests = append(s.WithdrawalRequests, &models.WithdrawalRequest{ID: "wd1", Status: models.StatusPending})
	s.Referrals = append(s.Referrals, models.Referral{ID: 7, Username: "bob"})
	s.CompletedTaskIDs = append(s.CompletedTaskIDs, "t1")

	c := s.Clone()
	c.MinerSlots[0].Level = 5
	c.WithdrawalRequests[0].Status = models.StatusPaid
	c.Referrals[0].Earned = 100
	c.CompletedTaskIDs[0] = "t2"

	if s.MinerSlots[0].Level != 1 {
		t.Error("Clone shares device instances")
	}
	if s.FindWithdrawal("wd1").Status != models.StatusPending {
		t.Error("Clone shares withdrawal requests")
	}
	if s.Referrals[0].Earned != 0 {
		t.Error("Clone shares referrals")
	}
	if !s.HasCompletedTask("t1") || s.HasCompletedTask("t2") {
		t.Error("Clone shares completed task ids")
	}

	var nilSnap *models.PlayerSnapshot
	if nilSnap.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestFindRequests(t *testing.T) {
	s := models.NewSnapshot(42, "alice", "Alice", time.Now())
	s.DepositRequests = []*models.DepositRequest{nil, {ID: "dep1"}}

	if s.FindDeposit("dep1") == nil {
		t.Error("Expected deposit dep1")
	}
	if s.FindDeposit("dep2") != nil || s.FindWithdrawal("dep1") != nil {
		t.Error("Unexpected request found")
	}
}

func TestHelpers(t *testing.T) {
	if memo := models.DepositMemo(42); memo != "SRG-42" {
		t.Errorf("Expected SRG-42, got %s", memo)
	}
	if memo := models.DepositMemo(0); memo != "SRG-USER" {
		t.Errorf("Expected SRG-USER, got %s", memo)
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 500*int(time.Millisecond), time.UTC)
	if back := models.FromUnixMillis(models.UnixMillis(now)); !back.Equal(now) {
		t.Errorf("Millisecond round trip: %v != %v", back, now)
	}

	if id := models.GenerateDepositID(); !strings.HasPrefix(id, "dep_") {
		t.Errorf("Unexpected deposit id %s", id)
	}
	if models.GenerateWithdrawalID() == models.GenerateWithdrawalID() {
		t.Error("Withdrawal ids should be unique")
	}

	u := &models.TelegramUser{Username: "bob"}
	if u.DisplayName() != "bob" {
		t.Errorf("Expected username fallback, got %s", u.DisplayName())
	}
	if (&models.TelegramUser{}).DisplayName() != "Miner" {
		t.Error("Expected generic display name")
	}
}
