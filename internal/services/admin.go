package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
)

// AdminTotals summarises the player base for the admin dashboard.
type AdminTotals struct {
	Players            int     `json:"players"`
	PendingDeposits    int     `json:"pending_deposits"`
	PendingWithdrawals int     `json:"pending_withdrawals"`
	TotalSrg           float64 `json:"total_srg"`
	TotalSilver        float64 `json:"total_silver"`
	TotalGold          float64 `json:"total_gold"`
}

// AdminService applies privileged changes straight to stored profiles. Each
// write is versioned; a concurrent change fails with ErrVersionConflict and
// the admin retries against fresh data.
type AdminService struct {
	store    ProfileStore
	audit    AuditLog
	sessions *SessionManager
	notifier *Notifier
	metrics  *Metrics
	clock    func() time.Time
}

func NewAdminService(store ProfileStore, audit AuditLog, sessions *SessionManager, notifier *Notifier, metrics *Metrics) *AdminService {
	return &AdminService{
		store:    store,
		audit:    audit,
		sessions: sessions,
		notifier: notifier,
		metrics:  metrics,
		clock:    time.Now,
	}
}

func (a *AdminService) ListProfiles(ctx context.Context) ([]*models.PlayerSnapshot, AdminTotals, error) {
	profiles, err := a.store.ListProfiles(ctx)
	if err != nil {
		return nil, AdminTotals{}, err
	}

	var totals AdminTotals
	for _, p := range profiles {
		totals.Players++
		totals.TotalSrg += p.SrgBalance
		totals.TotalSilver += p.SilverBalance
		totals.TotalGold += p.GoldBalance
		for _, d := range p.DepositRequests {
			if d != nil && d.Status == models.StatusPending {
				totals.PendingDeposits++
			}
		}
		for _, w := range p.WithdrawalRequests {
			if w != nil && w.Status == models.StatusPending {
				totals.PendingWithdrawals++
			}
		}
	}
	return profiles, totals, nil
}

func (a *AdminService) GetProfile(ctx context.Context, userID int64) (*models.PlayerSnapshot, error) {
	return a.store.LoadProfile(ctx, userID)
}

func (a *AdminService) Logs(ctx context.Context, limit int64) ([]*models.AuditEntry, error) {
	return a.audit.RecentAudit(ctx, limit)
}

// findOwner locates the profile holding a deposit or withdrawal request.
func (a *AdminService) findOwner(ctx context.Context, requestID string) (*models.PlayerSnapshot, error) {
	profiles, err := a.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.FindDeposit(requestID) != nil || p.FindWithdrawal(requestID) != nil {
			return p, nil
		}
	}
	return nil, game.ErrRequestNotFound
}

// commit stores an admin-edited snapshot, merges it into a live session and
// records the action.
func (a *AdminService) commit(ctx context.Context, adminID int64, action string, next *models.PlayerSnapshot, requestID, details string) (*models.PlayerSnapshot, error) {
	start := time.Now()
	version, err := a.store.AdminSaveProfile(ctx, next)
	a.metrics.RecordSave("admin", err, time.Since(start))
	a.metrics.RecordAdminAction(action, err)
	if err != nil {
		log.Printf("[Admin] %s on user %d failed: %v", action, next.UserID, err)
		return nil, err
	}
	next.Version = version

	if s, ok := a.sessions.Get(next.UserID); ok {
		if err := s.Refresh(ctx); err != nil {
			log.Printf("[Admin] failed to refresh live session of user %d: %v", next.UserID, err)
		}
	}

	entry := &models.AuditEntry{
		AdminID:   adminID,
		Action:    action,
		TargetID:  next.UserID,
		RequestID: requestID,
		Details:   details,
		Timestamp: models.UnixMillis(a.clock()),
	}
	if err := a.audit.AppendAudit(ctx, entry); err != nil {
		log.Printf("[Admin] failed to write audit entry: %v", err)
	}

	log.Printf("[Admin] %d: %s on user %d %s", adminID, action, next.UserID, details)
	return next, nil
}

// ApproveDeposit credits a deposit and pays the depositor's sponsor their
// commission. The sponsor payout is a separate write; if it fails the
// deposit stays approved.
func (a *AdminService) ApproveDeposit(ctx context.Context, adminID int64, requestID string, credited *float64) (*models.PlayerSnapshot, error) {
	owner, err := a.findOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}
	next, amount, err := game.ApproveDeposit(owner, requestID, credited)
	if err != nil {
		a.metrics.RecordAdminAction("approve_deposit", err)
		return nil, err
	}
	saved, err := a.commit(ctx, adminID, "approve_deposit", next, requestID, fmt.Sprintf("credited %.0f silver", amount))
	if err != nil {
		return nil, err
	}
	a.notifier.DepositApproved(saved.UserID, amount)

	if saved.ReferredBy != 0 {
		if err := a.paySponsor(ctx, adminID, saved, amount); err != nil {
			log.Printf("[Admin] sponsor commission for user %d failed: %v", saved.UserID, err)
		}
	}
	return saved, nil
}

func (a *AdminService) paySponsor(ctx context.Context, adminID int64, friend *models.PlayerSnapshot, credited float64) error {
	bonus := game.SponsorCommission(credited)
	if bonus <= 0 {
		return nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		sponsor, err := a.store.LoadProfile(ctx, friend.ReferredBy)
		if err != nil {
			return err
		}
		next, err := game.PaySponsor(sponsor, friend.UserID, bonus)
		if err != nil {
			return err
		}
		_, err = a.commit(ctx, adminID, "sponsor_commission", next, "", fmt.Sprintf("%.0f silver from user %d", bonus, friend.UserID))
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}
		a.notifier.SponsorBonus(sponsor.UserID, friend.Username, bonus)
		return nil
	}
	return ErrVersionConflict
}

func (a *AdminService) RejectDeposit(ctx context.Context, adminID int64, requestID string) (*models.PlayerSnapshot, error) {
	owner, err := a.findOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req := owner.FindDeposit(requestID)
	if req == nil {
		return nil, game.ErrRequestNotFound
	}
	amount := req.AmountSilver

	next, err := game.RejectDeposit(owner, requestID)
	if err != nil {
		a.metrics.RecordAdminAction("reject_deposit", err)
		return nil, err
	}
	saved, err := a.commit(ctx, adminID, "reject_deposit", next, requestID, "")
	if err != nil {
		return nil, err
	}
	a.notifier.DepositRejected(saved.UserID, amount)
	return saved, nil
}

func (a *AdminService) ApproveWithdrawal(ctx context.Context, adminID int64, requestID string) (*models.PlayerSnapshot, error) {
	owner, err := a.findOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req := owner.FindWithdrawal(requestID)
	if req == nil {
		return nil, game.ErrRequestNotFound
	}
	amount, method := req.Amount, req.Method

	next, err := game.ApproveWithdrawal(owner, requestID)
	if err != nil {
		a.metrics.RecordAdminAction("approve_withdrawal", err)
		return nil, err
	}
	saved, err := a.commit(ctx, adminID, "approve_withdrawal", next, requestID, fmt.Sprintf("%.0f gold via %s", amount, method))
	if err != nil {
		return nil, err
	}
	a.notifier.WithdrawalPaid(saved.UserID, amount, string(method))
	return saved, nil
}

func (a *AdminService) RejectWithdrawal(ctx context.Context, adminID int64, requestID string) (*models.PlayerSnapshot, error) {
	owner, err := a.findOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req := owner.FindWithdrawal(requestID)
	if req == nil {
		return nil, game.ErrRequestNotFound
	}
	amount := req.Amount

	next, err := game.RejectWithdrawal(owner, requestID)
	if err != nil {
		a.metrics.RecordAdminAction("reject_withdrawal", err)
		return nil, err
	}
	saved, err := a.commit(ctx, adminID, "reject_withdrawal", next, requestID, fmt.Sprintf("refunded %.0f gold", amount))
	if err != nil {
		return nil, err
	}
	a.notifier.WithdrawalRejected(saved.UserID, amount)
	return saved, nil
}

func (a *AdminService) CreditSilver(ctx context.Context, adminID, userID int64, amount float64) (*models.PlayerSnapshot, error) {
	profile, err := a.store.LoadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, err := game.CreditSilver(profile, amount)
	if err != nil {
		a.metrics.RecordAdminAction("credit_silver", err)
		return nil, err
	}
	return a.commit(ctx, adminID, "credit_silver", next, "", fmt.Sprintf("%+.0f silver", amount))
}

func (a *AdminService) PatchProfile(ctx context.Context, adminID, userID int64, patch game.AdminPatch) (*models.PlayerSnapshot, error) {
	profile, err := a.store.LoadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, err := game.ApplyAdminPatch(profile, patch)
	if err != nil {
		a.metrics.RecordAdminAction("patch_profile", err)
		return nil, err
	}
	return a.commit(ctx, adminID, "patch_profile", next, "", describePatch(patch))
}

func describePatch(p game.AdminPatch) string {
	out := ""
	add := func(name string, v interface{}) {
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", name, v)
	}
	if p.SrgBalance != nil {
		add("srg", *p.SrgBalance)
	}
	if p.SilverBalance != nil {
		add("silver", *p.SilverBalance)
	}
	if p.GoldBalance != nil {
		add("gold", *p.GoldBalance)
	}
	if p.ClickPower != nil {
		add("click_power", *p.ClickPower)
	}
	if p.MaxEnergyPool != nil {
		add("max_energy", *p.MaxEnergyPool)
	}
	if p.UnlockedMinerSlots != nil {
		add("miner_slots", *p.UnlockedMinerSlots)
	}
	if p.UnlockedGeneratorSlots != nil {
		add("generator_slots", *p.UnlockedGeneratorSlots)
	}
	return out
}
