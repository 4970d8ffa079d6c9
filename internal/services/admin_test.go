package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

const testAdminID = int64(1)

func setupAdmin(store *memStore) (*services.AdminService, *services.SessionManager) {
	manager, _ := newTestManager(store)
	return services.NewAdminService(store, store, manager, nil, nil), manager
}

func pendingDeposit(userID int64, id string, amount float64) *models.DepositRequest {
	return &models.DepositRequest{
		ID:           id,
		UserID:       userID,
		AmountSilver: amount,
		CostUSDT:     amount / game.SilverPerUSD,
		Memo:         models.DepositMemo(userID),
		Status:       models.StatusPending,
		Timestamp:    models.UnixMillis(testEpoch),
	}
}

func TestAdminApproveDepositPaysSponsor(t *testing.T) {
	store := newMemStore()
	sponsor := models.NewSnapshot(7, "sponsor", "Sponsor", testEpoch)
	sponsor.Referrals = []models.Referral{{ID: 42, Username: "friend", Status: "ACTIVE"}}
	store.put(sponsor)

	friend := models.NewSnapshot(42, "friend", "Friend", testEpoch)
	friend.ReferredBy = 7
	friend.DepositRequests = []*models.DepositRequest{
		pendingDeposit(42, "dep_1", 2000),
		pendingDeposit(42, "dep_2", 4000),
	}
	store.put(friend)

	admin, manager := setupAdmin(store)
	defer manager.StopAll()
	ctx := context.Background()

	saved, err := admin.ApproveDeposit(ctx, testAdminID, "dep_1", nil)
	if err != nil {
		t.Fatalf("ApproveDeposit failed: %v", err)
	}
	if saved.SilverBalance != 5000 {
		t.Errorf("Expected 5000 silver, got %v", saved.SilverBalance)
	}
	if got := store.get(7); got.SilverBalance != 3200 || got.Referrals[0].Earned != 200 {
		t.Errorf("Expected sponsor 3200 silver and 200 earned, got %v / %v", got.SilverBalance, got.Referrals[0].Earned)
	}

	credited := 1500.0
	if _, err := admin.ApproveDeposit(ctx, testAdminID, "dep_2", &credited); err != nil {
		t.Fatalf("ApproveDeposit with override failed: %v", err)
	}
	stored := store.get(42)
	if stored.SilverBalance != 6500 {
		t.Errorf("Expected 6500 silver, got %v", stored.SilverBalance)
	}
	if dep := stored.FindDeposit("dep_2"); dep.Status != models.StatusCompleted || dep.CreditedSilver != 1500 {
		t.Errorf("Unexpected deposit after override: %+v", dep)
	}
	if got := store.get(7).SilverBalance; got != 3350 {
		t.Errorf("Expected sponsor 3350 silver, got %v", got)
	}

	if _, err := admin.ApproveDeposit(ctx, testAdminID, "dep_1", nil); !errors.Is(err, game.ErrRequestFinalized) {
		t.Errorf("Expected ErrRequestFinalized, got %v", err)
	}
	if _, err := admin.ApproveDeposit(ctx, testAdminID, "dep_missing", nil); !errors.Is(err, game.ErrRequestNotFound) {
		t.Errorf("Expected ErrRequestNotFound, got %v", err)
	}

	logs, err := admin.Logs(ctx, 10)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("Expected 4 audit entries, got %d", len(logs))
	}
	if logs[0].Action != "sponsor_commission" || logs[1].Action != "approve_deposit" || logs[1].RequestID != "dep_2" {
		t.Errorf("Unexpected audit order: %+v %+v", logs[0], logs[1])
	}
}

func TestAdminWithdrawals(t *testing.T) {
	store := newMemStore()
	player := models.NewSnapshot(42, "player", "Player", testEpoch)
	player.WithdrawalRequests = []*models.WithdrawalRequest{
		{ID: "wd_1", UserID: 42, Amount: 150, Method: models.WithdrawalUSDT, Address: "TAddress1", Status: models.StatusPending},
		{ID: "wd_2", UserID: 42, Amount: 100, Method: models.WithdrawalTON, Address: "UQAddress", Status: models.StatusPending},
	}
	store.put(player)

	admin, manager := setupAdmin(store)
	defer manager.StopAll()
	ctx := context.Background()

	if _, err := admin.ApproveWithdrawal(ctx, testAdminID, "wd_1"); err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	saved, err := admin.RejectWithdrawal(ctx, testAdminID, "wd_2")
	if err != nil {
		t.Fatalf("RejectWithdrawal failed: %v", err)
	}
	if saved.GoldBalance != 100 {
		t.Errorf("Rejected withdrawal should refund 100 gold, got %v", saved.GoldBalance)
	}
	if got := saved.FindWithdrawal("wd_1").Status; got != models.StatusPaid {
		t.Errorf("Expected wd_1 PAID, got %s", got)
	}
	if _, err := admin.RejectWithdrawal(ctx, testAdminID, "wd_1"); !errors.Is(err, game.ErrRequestFinalized) {
		t.Errorf("Expected ErrRequestFinalized, got %v", err)
	}

	_, totals, err := admin.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if totals.Players != 1 || totals.PendingWithdrawals != 0 || totals.TotalGold != 100 {
		t.Errorf("Unexpected totals: %+v", totals)
	}
}

func TestAdminRefreshesLiveSession(t *testing.T) {
	store := newMemStore()
	admin, manager := setupAdmin(store)
	defer manager.StopAll()
	profiles := services.NewProfileService(store, manager)
	ctx := context.Background()

	session, err := profiles.Open(ctx, testUser(42), 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := session.Purchase("m1"); err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if err := session.Persist(ctx); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	if _, err := admin.CreditSilver(ctx, testAdminID, 42, 500); err != nil {
		t.Fatalf("CreditSilver failed: %v", err)
	}
	if got := session.State().Snapshot.SilverBalance; got != 1500 {
		t.Errorf("Expected live silver 1500, got %v", got)
	}

	clicks := 3.0
	if _, err := admin.PatchProfile(ctx, testAdminID, 42, game.AdminPatch{ClickPower: &clicks}); err != nil {
		t.Fatalf("PatchProfile failed: %v", err)
	}
	state := session.State().Snapshot
	if state.ClickPower != 3 {
		t.Errorf("Expected live click power 3, got %v", state.ClickPower)
	}
	if state.MinerSlots[0] == nil {
		t.Error("Live devices were lost on refresh")
	}

	if err := session.Persist(ctx); err != nil {
		t.Fatalf("Persist after admin writes failed: %v", err)
	}
	if got := store.get(42); got.SilverBalance != 1500 || got.ClickPower != 3 {
		t.Errorf("Unexpected stored profile: silver %v, click power %v", got.SilverBalance, got.ClickPower)
	}
}

func TestAdminLowersUnlockedSlotsOnLiveSession(t *testing.T) {
	store := newMemStore()
	stored := models.NewSnapshot(42, "player", "Player", testEpoch)
	stored.UnlockedMinerSlots = 6
	store.put(stored)

	manager, clock := newTestManager(store)
	defer manager.StopAll()
	admin := services.NewAdminService(store, store, manager, nil, nil)
	profiles := services.NewProfileService(store, manager)
	ctx := context.Background()

	session, err := profiles.Open(ctx, testUser(42), 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	slots := 2
	if _, err := admin.PatchProfile(ctx, testAdminID, 42, game.AdminPatch{UnlockedMinerSlots: &slots}); err != nil {
		t.Fatalf("PatchProfile failed: %v", err)
	}
	if got := session.State().Snapshot.UnlockedMinerSlots; got != 2 {
		t.Errorf("Expected live unlocked slots 2, got %d", got)
	}

	clock.Advance(time.Minute)
	if err := session.Persist(ctx); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if got := store.get(42).UnlockedMinerSlots; got != 2 {
		t.Errorf("Player save overwrote admin patch: unlocked slots %d", got)
	}
}

// staleStore fails the next admin write as if another writer got there first.
type staleStore struct {
	*memStore
	failNext bool
}

func (s *staleStore) AdminSaveProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error) {
	if s.failNext {
		s.failNext = false
		return 0, services.ErrVersionConflict
	}
	return s.memStore.AdminSaveProfile(ctx, snapshot)
}

func TestAdminConflict(t *testing.T) {
	mem := newMemStore()
	mem.put(models.NewSnapshot(42, "player", "Player", testEpoch))
	store := &staleStore{memStore: mem, failNext: true}

	manager, _ := newTestManager(store)
	defer manager.StopAll()
	admin := services.NewAdminService(store, mem, manager, nil, nil)
	ctx := context.Background()

	if _, err := admin.CreditSilver(ctx, testAdminID, 42, 500); !errors.Is(err, services.ErrVersionConflict) {
		t.Fatalf("Expected ErrVersionConflict, got %v", err)
	}
	if got := mem.get(42).SilverBalance; got != models.DefaultSilverBalance {
		t.Errorf("Conflicting write must not apply, silver is %v", got)
	}
	if _, err := admin.CreditSilver(ctx, testAdminID, 42, 500); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if _, err := admin.CreditSilver(ctx, testAdminID, 404, 500); !errors.Is(err, services.ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
}
