package game

import (
	"fmt"
	"math"
	"strings"
	"time"

	"srg-miniapp-backend/internal/models"
)

// Purchase installs a new device in the lowest free unlocked slot of its
// category and pays for it in silver.
func Purchase(s *models.PlayerSnapshot, cat *Catalog, typeID string, now time.Time) (*models.PlayerSnapshot, *models.DeviceInstance, error) {
	if s == nil {
		return nil, nil, ErrNoSnapshot
	}
	entry, ok := cat.FindDevice(typeID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownDevice, typeID)
	}

	slot := freeSlot(s, entry.Category)
	if slot < 0 {
		return nil, nil, ErrNoFreeSlot
	}
	if s.SilverBalance < entry.SilverCost {
		return nil, nil, ErrInsufficientSilver
	}

	next := s.Clone()
	device := &models.DeviceInstance{
		ID:           models.GenerateDeviceID(),
		TypeID:       entry.ID,
		Level:        1,
		PurchaseTime: models.UnixMillis(now),
	}
	slots := next.Slots(entry.Category)
	slots[slot] = device
	next.SilverBalance -= entry.SilverCost
	return next, device, nil
}

func freeSlot(s *models.PlayerSnapshot, category models.DeviceCategory) int {
	slots := s.Slots(category)
	limit := clampInt(s.Unlocked(category), 0, len(slots))
	for i := 0; i < limit; i++ {
		if slots[i] == nil {
			return i
		}
	}
	return -1
}

// SaleRefund is the silver returned for a device: the full price inside the
// grace period after purchase, SaleRefundRate of it afterwards.
func SaleRefund(entry DeviceEntry, device *models.DeviceInstance, now time.Time) float64 {
	rate := SaleRefundRate
	age := now.Sub(models.FromUnixMillis(device.PurchaseTime))
	if age >= 0 && age <= SaleGracePeriod {
		rate = 1.0
	}
	return math.Floor(entry.SilverCost * rate)
}

// Sell removes the device in a slot and refunds part of its price. A device
// of unknown type is removed without refund.
func Sell(s *models.PlayerSnapshot, cat *Catalog, category models.DeviceCategory, slot int, now time.Time) (*models.PlayerSnapshot, float64, error) {
	if s == nil {
		return nil, 0, ErrNoSnapshot
	}
	if category != models.CategoryMiner && category != models.CategoryGenerator {
		return nil, 0, ErrInvalidCategory
	}
	slots := s.Slots(category)
	if slot < 0 || slot >= len(slots) {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	device := slots[slot]
	if device == nil {
		return nil, 0, ErrSlotEmpty
	}

	refund := 0.0
	if entry, ok := cat.FindDevice(device.TypeID); ok {
		refund = SaleRefund(entry, device, now)
	}

	next := s.Clone()
	next.Slots(category)[slot] = nil
	next.SilverBalance += refund
	return next, refund, nil
}

// UnlockSlot opens the next locked slot of a category.
func UnlockSlot(s *models.PlayerSnapshot, category models.DeviceCategory) (*models.PlayerSnapshot, float64, error) {
	if s == nil {
		return nil, 0, ErrNoSnapshot
	}
	if category != models.CategoryMiner && category != models.CategoryGenerator {
		return nil, 0, ErrInvalidCategory
	}
	i := s.Unlocked(category)
	if i >= models.SlotCount {
		return nil, 0, ErrAllSlotsUnlocked
	}
	cost, err := UnlockCost(category, i)
	if err != nil {
		return nil, 0, err
	}
	if s.SilverBalance < cost {
		return nil, 0, ErrInsufficientSilver
	}

	next := s.Clone()
	next.SilverBalance -= cost
	next.SetUnlocked(category, i+1)
	return next, cost, nil
}

// Exchange converts SRG in blocks of ExchangeRatio into one gold and one
// silver per block. Lifetime earnings are unaffected.
func Exchange(s *models.PlayerSnapshot, amount float64) (*models.PlayerSnapshot, error) {
	if s == nil {
		return nil, ErrNoSnapshot
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 || math.Mod(amount, ExchangeRatio) != 0 {
		return nil, ErrInvalidExchangeAmount
	}
	if s.SrgBalance < amount {
		return nil, ErrInsufficientSRG
	}

	units := amount / ExchangeRatio
	next := s.Clone()
	next.SrgBalance -= amount
	next.GoldBalance += units
	next.SilverBalance += units
	return next, nil
}

// RequestWithdrawal files a PENDING payout and reserves the gold.
func RequestWithdrawal(s *models.PlayerSnapshot, amount float64, method models.WithdrawalMethod, address string, now time.Time) (*models.PlayerSnapshot, *models.WithdrawalRequest, error) {
	if s == nil {
		return nil, nil, ErrNoSnapshot
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount != math.Floor(amount) {
		return nil, nil, ErrInvalidAmount
	}
	if amount < MinWithdrawalGold {
		return nil, nil, fmt.Errorf("%w: minimum is %.0f gold", ErrWithdrawalTooSmall, MinWithdrawalGold)
	}
	if method != models.WithdrawalUSDT && method != models.WithdrawalTON {
		return nil, nil, ErrInvalidMethod
	}
	address = strings.TrimSpace(address)
	if len(address) < MinAddressLength {
		return nil, nil, ErrInvalidAddress
	}
	if s.GoldBalance < amount {
		return nil, nil, ErrInsufficientGold
	}

	req := &models.WithdrawalRequest{
		ID:               models.GenerateWithdrawalID(),
		UserID:           s.UserID,
		Amount:           amount,
		Method:           method,
		Address:          address,
		Status:           models.StatusPending,
		Timestamp:        models.UnixMillis(now),
		TelegramUsername: s.Username,
	}
	next := s.Clone()
	next.GoldBalance -= amount
	next.WithdrawalRequests = append(next.WithdrawalRequests, req)
	return next, req, nil
}

// RequestDeposit records a manual top-up the player promises to pay for.
// Nothing is credited until an admin approves it.
func RequestDeposit(s *models.PlayerSnapshot, amountSilver float64, now time.Time) (*models.PlayerSnapshot, *models.DepositRequest, error) {
	if s == nil {
		return nil, nil, ErrNoSnapshot
	}
	if math.IsNaN(amountSilver) || math.IsInf(amountSilver, 0) || amountSilver <= 0 || amountSilver != math.Floor(amountSilver) {
		return nil, nil, ErrInvalidDepositAmount
	}

	req := &models.DepositRequest{
		ID:               models.GenerateDepositID(),
		UserID:           s.UserID,
		AmountSilver:     amountSilver,
		CostUSDT:         amountSilver / SilverPerUSD,
		Memo:             models.DepositMemo(s.UserID),
		Status:           models.StatusPending,
		Timestamp:        models.UnixMillis(now),
		TelegramUsername: s.Username,
	}
	next := s.Clone()
	next.DepositRequests = append(next.DepositRequests, req)
	return next, req, nil
}

// ClaimDaily grants the streak reward once per UTC calendar day. Missing a
// whole day restarts the streak.
func ClaimDaily(s *models.PlayerSnapshot, now time.Time) (*models.PlayerSnapshot, DailyReward, error) {
	if s == nil {
		return nil, DailyReward{}, ErrNoSnapshot
	}
	today := utcDay(now)
	streak := s.DailyStreak
	if s.LastDailyClaim > 0 {
		last := utcDay(models.FromUnixMillis(s.LastDailyClaim))
		switch {
		case !today.After(last):
			return nil, DailyReward{}, ErrDailyAlreadyClaimed
		case today.Sub(last) > 24*time.Hour:
			streak = 0
		}
	}
	if streak < 0 {
		streak = 0
	}

	reward := DailyRewards[streak%len(DailyRewards)]
	next := s.Clone()
	next.SilverBalance += reward.Silver
	next.GoldBalance += reward.Gold
	next.DailyStreak = streak + 1
	next.LastDailyClaim = models.UnixMillis(now)
	return next, reward, nil
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ClaimTask(s *models.PlayerSnapshot, taskID string) (*models.PlayerSnapshot, Task, error) {
	if s == nil {
		return nil, Task{}, ErrNoSnapshot
	}
	task, ok := FindTask(taskID)
	if !ok {
		return nil, Task{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if s.HasCompletedTask(task.ID) {
		return nil, Task{}, ErrTaskAlreadyClaimed
	}

	next := s.Clone()
	next.SilverBalance += task.Silver
	next.CompletedTaskIDs = append(next.CompletedTaskIDs, task.ID)
	return next, task, nil
}

// ClaimReferralReward pays the one-time bonus for a friend who joined
// through this player's link.
func ClaimReferralReward(s *models.PlayerSnapshot, friendID int64) (*models.PlayerSnapshot, float64, error) {
	if s == nil {
		return nil, 0, ErrNoSnapshot
	}
	idx := -1
	for i, r := range s.Referrals {
		if r.ID == friendID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, 0, ErrNotReferred
	}
	taskID := ReferralTaskID(friendID)
	if s.HasCompletedTask(taskID) {
		return nil, 0, ErrTaskAlreadyClaimed
	}

	next := s.Clone()
	next.SilverBalance += ReferralReward
	next.Referrals[idx].Earned += ReferralReward
	next.CompletedTaskIDs = append(next.CompletedTaskIDs, taskID)
	return next, ReferralReward, nil
}

// SetReferrer links a new player to the sponsor who invited them. It is a
// no-op once a sponsor is set or when the player invited themselves.
func SetReferrer(s *models.PlayerSnapshot, sponsorID int64) (*models.PlayerSnapshot, bool) {
	if s == nil || sponsorID == 0 || sponsorID == s.UserID || s.ReferredBy != 0 {
		return s, false
	}
	next := s.Clone()
	next.ReferredBy = sponsorID
	return next, true
}

// AddReferral appends a friend to the sponsor's team if not already listed.
func AddReferral(sponsor *models.PlayerSnapshot, friendID int64, friendUsername string) (*models.PlayerSnapshot, bool) {
	if sponsor == nil || friendID == 0 {
		return sponsor, false
	}
	for _, r := range sponsor.Referrals {
		if r.ID == friendID {
			return sponsor, false
		}
	}
	next := sponsor.Clone()
	next.Referrals = append(next.Referrals, models.Referral{
		ID:       friendID,
		Username: friendUsername,
		Status:   "ACTIVE",
	})
	return next, true
}
