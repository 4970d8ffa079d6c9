package game

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"srg-miniapp-backend/internal/models"
)

// Floor2 truncates to two decimal places, never rounding up. The decimal
// round trip avoids binary artefacts such as 0.29*100 = 28.999...
func Floor2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).RoundFloor(2).InexactFloat64()
}

func floorUnits(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Floor(v)
}

// Sanitize repairs a snapshot read from storage so that the engine can run
// on it. It never fails.
func Sanitize(s *models.PlayerSnapshot) *models.PlayerSnapshot {
	if s == nil {
		return nil
	}
	next := s.Clone()

	next.SrgBalance = nonNegative(next.SrgBalance)
	next.SilverBalance = nonNegative(next.SilverBalance)
	next.GoldBalance = nonNegative(next.GoldBalance)
	next.TotalSrgEarned = nonNegative(next.TotalSrgEarned)
	next.ClickPower = nonNegative(next.ClickPower)
	if next.ClickPower == 0 {
		next.ClickPower = models.DefaultClickPower
	}
	next.MaxEnergyPool = nonNegative(next.MaxEnergyPool)
	if next.MaxEnergyPool == 0 {
		next.MaxEnergyPool = models.DefaultMaxEnergyPool
	}
	next.EnergyPool = clampFloat(finiteOrZero(next.EnergyPool), 0, next.MaxEnergyPool)

	next.MinerSlots = padSlots(next.MinerSlots)
	next.GeneratorSlots = padSlots(next.GeneratorSlots)
	next.UnlockedMinerSlots = clampInt(next.UnlockedMinerSlots, 0, models.SlotCount)
	next.UnlockedGeneratorSlots = clampInt(next.UnlockedGeneratorSlots, 0, models.SlotCount)

	if next.WithdrawalRequests == nil {
		next.WithdrawalRequests = []*models.WithdrawalRequest{}
	}
	if next.DepositRequests == nil {
		next.DepositRequests = []*models.DepositRequest{}
	}
	if next.Referrals == nil {
		next.Referrals = []models.Referral{}
	}
	if next.CompletedTaskIDs == nil {
		next.CompletedTaskIDs = []string{}
	}
	if next.Language == "" {
		next.Language = models.DefaultLanguage
	}
	if next.DailyStreak < 0 {
		next.DailyStreak = 0
	}
	return next
}

func nonNegative(v float64) float64 {
	v = finiteOrZero(v)
	if v < 0 {
		return 0
	}
	return v
}

func padSlots(slots []*models.DeviceInstance) []*models.DeviceInstance {
	out := make([]*models.DeviceInstance, models.SlotCount)
	for i := 0; i < len(slots) && i < models.SlotCount; i++ {
		d := slots[i]
		if d == nil || strings.TrimSpace(d.TypeID) == "" {
			continue
		}
		out[i] = d
	}
	return out
}

// Normalize prepares a player-originated snapshot for storage: balances are
// floored and last_update is stamped with now.
func Normalize(s *models.PlayerSnapshot, ranks RankTable, now time.Time) *models.PlayerSnapshot {
	next := Sanitize(s)
	if next == nil {
		return nil
	}
	next.SrgBalance = Floor2(next.SrgBalance)
	next.EnergyPool = Floor2(next.EnergyPool)
	next.TotalSrgEarned = Floor2(next.TotalSrgEarned)
	next.SilverBalance = floorUnits(next.SilverBalance)
	next.GoldBalance = floorUnits(next.GoldBalance)
	next.Rank = ranks.Resolve(next.TotalSrgEarned).Title
	next.LastUpdate = models.UnixMillis(now)
	return next
}

// ApproveDeposit completes a pending deposit and credits the silver. An
// explicit credited amount overrides the requested one.
func ApproveDeposit(s *models.PlayerSnapshot, requestID string, credited *float64) (*models.PlayerSnapshot, float64, error) {
	if s == nil {
		return nil, 0, ErrNoSnapshot
	}
	req := s.FindDeposit(requestID)
	if req == nil {
		return nil, 0, ErrRequestNotFound
	}
	if req.Status != models.StatusPending {
		return nil, 0, ErrRequestFinalized
	}
	amount := req.AmountSilver
	if credited != nil {
		amount = *credited
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, 0, ErrInvalidAmount
	}
	amount = math.Floor(amount)

	next := s.Clone()
	r := next.FindDeposit(requestID)
	r.Status = models.StatusCompleted
	r.CreditedSilver = amount
	next.SilverBalance += amount
	return next, amount, nil
}

func RejectDeposit(s *models.PlayerSnapshot, requestID string) (*models.PlayerSnapshot, error) {
	if s == nil {
		return nil, ErrNoSnapshot
	}
	req := s.FindDeposit(requestID)
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != models.StatusPending {
		return nil, ErrRequestFinalized
	}
	next := s.Clone()
	next.FindDeposit(requestID).Status = models.StatusRejected
	return next, nil
}

// ApproveWithdrawal marks a payout as sent. The gold was already reserved
// when the request was filed.
func ApproveWithdrawal(s *models.PlayerSnapshot, requestID string) (*models.PlayerSnapshot, error) {
	if s == nil {
		return nil, ErrNoSnapshot
	}
	req := s.FindWithdrawal(requestID)
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != models.StatusPending {
		return nil, ErrRequestFinalized
	}
	next := s.Clone()
	next.FindWithdrawal(requestID).Status = models.StatusPaid
	return next, nil
}

// RejectWithdrawal declines a payout and returns the reserved gold.
func RejectWithdrawal(s *models.PlayerSnapshot, requestID string) (*models.PlayerSnapshot, error) {
	if s == nil {
		return nil, ErrNoSnapshot
	}
	req := s.FindWithdrawal(requestID)
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != models.StatusPending {
		return nil, ErrRequestFinalized
	}
	next := s.Clone()
	r := next.FindWithdrawal(requestID)
	r.Status = models.StatusRejected
	next.GoldBalance += r.Amount
	return next, nil
}

// CreditSilver adds (or with a negative amount, removes) silver. The balance
// never goes below zero.
func CreditSilver(s *models.PlayerSnapshot, amount float64) (*models.PlayerSnapshot, error) {
	if s == nil {
		return nil, ErrNoSnapshot
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}
	next := s.Clone()
	next.SilverBalance = math.Max(next.SilverBalance+amount, 0)
	return next, nil
}

// SponsorCommission is the silver a sponsor earns on a friend's approved deposit.
func SponsorCommission(credited float64) float64 {
	return floorUnits(credited * SponsorCommissionRate)
}

// PaySponsor credits a commission and books it against the friend's
// referral entry when the friend is listed.
func PaySponsor(sponsor *models.PlayerSnapshot, friendID int64, bonus float64) (*models.PlayerSnapshot, error) {
	if sponsor == nil {
		return nil, ErrNoSnapshot
	}
	if math.IsNaN(bonus) || math.IsInf(bonus, 0) || bonus <= 0 {
		return nil, ErrInvalidAmount
	}
	next := sponsor.Clone()
	next.SilverBalance += bonus
	for i := range next.Referrals {
		if next.Referrals[i].ID == friendID {
			next.Referrals[i].Earned += bonus
			break
		}
	}
	return next, nil
}

// AdminPatch overwrites selected fields. Nil fields are left alone.
type AdminPatch struct {
	SrgBalance             *float64 `json:"srg_balance"`
	SilverBalance          *float64 `json:"silver_balance"`
	GoldBalance            *float64 `json:"gold_balance"`
	ClickPower             *float64 `json:"click_power"`
	MaxEnergyPool          *float64 `json:"max_energy_pool"`
	UnlockedMinerSlots     *int     `json:"unlocked_miner_slots"`
	UnlockedGeneratorSlots *int     `json:"unlocked_generator_slots"`
}

func ApplyAdminPatch(s *models.PlayerSnapshot, p AdminPatch) (*models.PlayerSnapshot, error) {
	if s == nil {
		return nil, ErrNoSnapshot
	}
	for _, v := range []*float64{p.SrgBalance, p.SilverBalance, p.GoldBalance, p.ClickPower, p.MaxEnergyPool} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
			return nil, ErrInvalidAmount
		}
	}
	for _, v := range []*int{p.UnlockedMinerSlots, p.UnlockedGeneratorSlots} {
		if v != nil && (*v < 0 || *v > models.SlotCount) {
			return nil, ErrInvalidAmount
		}
	}

	next := s.Clone()
	if p.SrgBalance != nil {
		next.SrgBalance = *p.SrgBalance
	}
	if p.SilverBalance != nil {
		next.SilverBalance = *p.SilverBalance
	}
	if p.GoldBalance != nil {
		next.GoldBalance = *p.GoldBalance
	}
	if p.ClickPower != nil {
		next.ClickPower = *p.ClickPower
	}
	if p.MaxEnergyPool != nil {
		next.MaxEnergyPool = *p.MaxEnergyPool
		next.EnergyPool = math.Min(next.EnergyPool, next.MaxEnergyPool)
	}
	if p.UnlockedMinerSlots != nil {
		next.UnlockedMinerSlots = *p.UnlockedMinerSlots
	}
	if p.UnlockedGeneratorSlots != nil {
		next.UnlockedGeneratorSlots = *p.UnlockedGeneratorSlots
	}
	return next, nil
}

// Rebase replays the changes made in local since base on top of remote.
// Balance changes made remotely (admin credits, refunds) are added to the
// local balances; request statuses finalized remotely win; devices and
// slots stay as the player left them. The result carries remote's version.
func Rebase(base, local, remote *models.PlayerSnapshot) *models.PlayerSnapshot {
	if local == nil {
		return remote.Clone()
	}
	if remote == nil {
		return local.Clone()
	}
	if base == nil {
		base = remote
	}

	next := local.Clone()
	next.SrgBalance = math.Max(local.SrgBalance+(remote.SrgBalance-base.SrgBalance), 0)
	next.SilverBalance = math.Max(local.SilverBalance+(remote.SilverBalance-base.SilverBalance), 0)
	next.GoldBalance = math.Max(local.GoldBalance+(remote.GoldBalance-base.GoldBalance), 0)
	if d := remote.TotalSrgEarned - base.TotalSrgEarned; d > 0 {
		next.TotalSrgEarned += d
	}
	if remote.ClickPower != base.ClickPower {
		next.ClickPower = remote.ClickPower
	}
	if remote.MaxEnergyPool != base.MaxEnergyPool {
		next.MaxEnergyPool = remote.MaxEnergyPool
		next.EnergyPool = math.Min(next.EnergyPool, next.MaxEnergyPool)
	}
	if remote.UnlockedMinerSlots != base.UnlockedMinerSlots {
		next.UnlockedMinerSlots = remote.UnlockedMinerSlots
	}
	if remote.UnlockedGeneratorSlots != base.UnlockedGeneratorSlots {
		next.UnlockedGeneratorSlots = remote.UnlockedGeneratorSlots
	}

	for _, rr := range remote.WithdrawalRequests {
		if rr == nil {
			continue
		}
		if lr := next.FindWithdrawal(rr.ID); lr != nil {
			if rr.Status != models.StatusPending {
				lr.Status = rr.Status
			}
			continue
		}
		cp := *rr
		next.WithdrawalRequests = append(next.WithdrawalRequests, &cp)
	}
	for _, rr := range remote.DepositRequests {
		if rr == nil {
			continue
		}
		if lr := next.FindDeposit(rr.ID); lr != nil {
			if rr.Status != models.StatusPending {
				lr.Status = rr.Status
				lr.CreditedSilver = rr.CreditedSilver
			}
			continue
		}
		cp := *rr
		next.DepositRequests = append(next.DepositRequests, &cp)
	}

	for _, rf := range remote.Referrals {
		found := false
		for i := range next.Referrals {
			if next.Referrals[i].ID == rf.ID {
				next.Referrals[i].Earned = math.Max(next.Referrals[i].Earned, rf.Earned)
				found = true
				break
			}
		}
		if !found {
			next.Referrals = append(next.Referrals, rf)
		}
	}
	for _, id := range remote.CompletedTaskIDs {
		if !next.HasCompletedTask(id) {
			next.CompletedTaskIDs = append(next.CompletedTaskIDs, id)
		}
	}
	if next.ReferredBy == 0 {
		next.ReferredBy = remote.ReferredBy
	}

	next.Version = remote.Version
	return next
}
