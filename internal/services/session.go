package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
)

const persistTimeout = 5 * time.Second

// SessionManager owns the live accrual loop of every connected player. There
// is at most one PlayerSession per user in a process.
type SessionManager struct {
	store   ProfileStore
	catalog *game.Catalog
	ranks   game.RankTable
	metrics *Metrics

	tickInterval     time.Duration
	autosaveInterval time.Duration

	mu          sync.RWMutex
	sessions    map[int64]*PlayerSession
	broadcaster Broadcaster
	clock       func() time.Time
}

type PlayerSession struct {
	UserID    int64
	StartedAt time.Time
	StopChan  chan struct{}

	manager *SessionManager
	guard   game.TapGuard

	mu          sync.Mutex
	state       *models.PlayerSnapshot
	base        *models.PlayerSnapshot // last snapshot known to be stored
	pendingSync bool
	stopped     bool
	seq         uint64
	lastActive  time.Time
	warned      map[string]bool

	persistMu sync.Mutex
	saveCh    chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

func NewSessionManager(store ProfileStore, catalog *game.Catalog, ranks game.RankTable, metrics *Metrics, tickInterval, autosaveInterval time.Duration) *SessionManager {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	if autosaveInterval <= 0 {
		autosaveInterval = 30 * time.Second
	}
	return &SessionManager{
		store:            store,
		catalog:          catalog,
		ranks:            ranks,
		metrics:          metrics,
		tickInterval:     tickInterval,
		autosaveInterval: autosaveInterval,
		sessions:         make(map[int64]*PlayerSession),
		clock:            time.Now,
	}
}

func (sm *SessionManager) SetBroadcaster(b Broadcaster) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.broadcaster = b
}

func (sm *SessionManager) SetClock(clock func() time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.clock = clock
}

func (sm *SessionManager) now() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.clock()
}

func (sm *SessionManager) getBroadcaster() Broadcaster {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.broadcaster
}

func (sm *SessionManager) Catalog() *game.Catalog { return sm.catalog }

func (sm *SessionManager) Ranks() game.RankTable { return sm.ranks }

func (sm *SessionManager) Get(userID int64) (*PlayerSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[userID]
	return s, ok
}

func (sm *SessionManager) ActiveSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Start hands a stored snapshot to a new live session. If the user already
// has one, that session is returned and stored is ignored.
func (sm *SessionManager) Start(stored *models.PlayerSnapshot) *PlayerSession {
	sm.mu.Lock()
	if existing, ok := sm.sessions[stored.UserID]; ok {
		sm.mu.Unlock()
		existing.touch()
		return existing
	}

	now := sm.clock()
	session := &PlayerSession{
		UserID:     stored.UserID,
		StartedAt:  now,
		StopChan:   make(chan struct{}),
		manager:    sm,
		state:      stored.Clone(),
		base:       stored.Clone(),
		lastActive: now,
		warned:     make(map[string]bool),
		saveCh:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	sm.sessions[stored.UserID] = session
	count := len(sm.sessions)
	sm.mu.Unlock()

	sm.metrics.SetActiveSessions(count)
	session.warnUnknown()
	go session.run()

	log.Printf("[Session] started for user %d (version %d)", stored.UserID, stored.Version)
	return session
}

// StopSession ends the live loop after a final save.
func (sm *SessionManager) StopSession(userID int64) {
	sm.mu.Lock()
	session, ok := sm.sessions[userID]
	if ok {
		delete(sm.sessions, userID)
	}
	count := len(sm.sessions)
	sm.mu.Unlock()

	if !ok {
		return
	}
	sm.metrics.SetActiveSessions(count)
	session.stop()
	log.Printf("[Session] stopped for user %d", userID)
}

func (sm *SessionManager) StopAll() {
	sm.mu.RLock()
	ids := make([]int64, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	sm.mu.RUnlock()

	for _, id := range ids {
		sm.StopSession(id)
	}
}

// CleanupStaleSessions stops sessions with no activity for maxIdle and no
// live socket.
func (sm *SessionManager) CleanupStaleSessions(maxIdle time.Duration) {
	now := sm.now()
	b := sm.getBroadcaster()

	sm.mu.RLock()
	var stale []int64
	for id, s := range sm.sessions {
		if b != nil && b.Connected(id) {
			continue
		}
		if now.Sub(s.LastActive()) > maxIdle {
			stale = append(stale, id)
		}
	}
	sm.mu.RUnlock()

	for _, id := range stale {
		sm.StopSession(id)
	}
}

func (ps *PlayerSession) run() {
	sm := ps.manager
	ticker := time.NewTicker(sm.tickInterval)
	defer ticker.Stop()
	autosave := time.NewTicker(sm.autosaveInterval)
	defer autosave.Stop()
	defer close(ps.done)

	for {
		select {
		case <-ticker.C:
			ps.tick()

		case <-autosave.C:
			ps.persistLogged()

		case <-ps.saveCh:
			ps.flush()

		case <-ps.StopChan:
			ps.persistLogged()
			return
		}
	}
}

func (ps *PlayerSession) stop() {
	ps.stopOnce.Do(func() {
		ps.mu.Lock()
		ps.stopped = true
		ps.mu.Unlock()
		close(ps.StopChan)
	})
	<-ps.done
}

func (ps *PlayerSession) tick() {
	sm := ps.manager
	now := sm.now()

	ps.mu.Lock()
	before := ps.state.TotalSrgEarned
	ps.state = game.Advance(ps.state, sm.catalog, sm.ranks, now)
	mined := ps.state.TotalSrgEarned - before
	view := ps.viewLocked()
	ps.mu.Unlock()

	sm.metrics.RecordTick(mined)
	if b := sm.getBroadcaster(); b != nil {
		b.BroadcastSnapshot(ps.UserID, view)
	}
}

func (ps *PlayerSession) requestSave() {
	select {
	case ps.saveCh <- struct{}{}:
	default:
	}
}

func (ps *PlayerSession) persistLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := ps.Persist(ctx); err != nil {
		log.Printf("[Session] save failed for user %d, will retry: %v", ps.UserID, err)
	}
}

// flush saves only if an action is still unsaved.
func (ps *PlayerSession) flush() {
	ps.persistMu.Lock()
	defer ps.persistMu.Unlock()
	if !ps.PendingSync() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := ps.persistLocked(ctx); err != nil {
		log.Printf("[Session] save failed for user %d, will retry: %v", ps.UserID, err)
	}
}

// Persist advances the live state to now and writes a normalized copy. On a
// version conflict the local state is rebased onto the stored one and the
// write is retried once. A failed write keeps the pending flag set.
func (ps *PlayerSession) Persist(ctx context.Context) error {
	ps.persistMu.Lock()
	defer ps.persistMu.Unlock()
	return ps.persistLocked(ctx)
}

func (ps *PlayerSession) persistLocked(ctx context.Context) error {
	sm := ps.manager
	for attempt := 0; attempt < 2; attempt++ {
		now := sm.now()

		ps.mu.Lock()
		ps.state = game.Advance(ps.state, sm.catalog, sm.ranks, now)
		record := game.Normalize(ps.state, sm.ranks, now)
		seq := ps.seq
		ps.mu.Unlock()

		start := time.Now()
		version, err := sm.store.SaveProfile(ctx, record)
		sm.metrics.RecordSave("player", err, time.Since(start))
		if err == nil {
			record.Version = version
			ps.mu.Lock()
			ps.base = record
			ps.state.Version = version
			if ps.seq == seq {
				ps.pendingSync = false
			}
			ps.mu.Unlock()
			return nil
		}

		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		sm.metrics.RecordConflict()
		log.Printf("[Session] version conflict for user %d, rebasing", ps.UserID)
		if err := ps.rebase(ctx); err != nil {
			return err
		}
	}
	return ErrVersionConflict
}

// Refresh pulls the stored snapshot after an out-of-band write (admin,
// referral) and merges it into the live state. Local changes not yet saved
// stay pending.
func (ps *PlayerSession) Refresh(ctx context.Context) error {
	ps.persistMu.Lock()
	defer ps.persistMu.Unlock()
	return ps.rebase(ctx)
}

func (ps *PlayerSession) rebase(ctx context.Context) error {
	remote, err := ps.manager.store.LoadProfile(ctx, ps.UserID)
	if err != nil {
		return err
	}

	ps.mu.Lock()
	ps.state = game.Sanitize(game.Rebase(ps.base, ps.state, remote))
	ps.base = remote
	ps.mu.Unlock()
	return nil
}

func (ps *PlayerSession) touch() {
	now := ps.manager.now()
	ps.mu.Lock()
	ps.lastActive = now
	ps.mu.Unlock()
}

func (ps *PlayerSession) LastActive() time.Time {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.lastActive
}

func (ps *PlayerSession) PendingSync() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.pendingSync
}

// State returns the live snapshot with its derived rates.
func (ps *PlayerSession) State() *models.StateResponse {
	now := ps.manager.now()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.lastActive = now
	return ps.viewLocked()
}

func (ps *PlayerSession) viewLocked() *models.StateResponse {
	sm := ps.manager
	rates := game.ComputeRates(ps.state, sm.catalog)
	return &models.StateResponse{
		Snapshot: ps.state.Clone(),
		Rates: models.RatesView{
			EnergyProductionPerHour:  rates.EnergyProduction,
			EnergyConsumptionPerHour: rates.EnergyConsumption,
			SrgPerHour:               game.EffectiveSRGPerHour(rates, sm.ranks, ps.state.TotalSrgEarned),
			RankBonus:                sm.ranks.Bonus(ps.state.TotalSrgEarned),
			UnknownDevices:           rates.Unknown,
		},
		PendingSync: ps.pendingSync,
	}
}

func (ps *PlayerSession) warnUnknown() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, id := range game.ComputeRates(ps.state, ps.manager.catalog).Unknown {
		if ps.warned[id] {
			continue
		}
		ps.warned[id] = true
		log.Printf("[Session] user %d owns unknown device type %q, it will not produce", ps.UserID, id)
	}
}

// apply runs a pure transition against the live state, advanced to now. The
// new state is adopted immediately and saved in the background.
func (ps *PlayerSession) apply(action string, fn func(s *models.PlayerSnapshot, now time.Time) (*models.PlayerSnapshot, error)) error {
	sm := ps.manager
	now := sm.now()

	ps.mu.Lock()
	if ps.stopped {
		ps.mu.Unlock()
		return ErrSessionClosed
	}
	ps.state = game.Advance(ps.state, sm.catalog, sm.ranks, now)
	ps.lastActive = now
	next, err := fn(ps.state, now)
	if err == nil {
		ps.state = next
		ps.pendingSync = true
		ps.seq++
	}
	ps.mu.Unlock()

	sm.metrics.RecordAction(action, err)
	if err != nil {
		return err
	}
	ps.requestSave()
	return nil
}

// Tap is not persisted on its own; taps ride along with the next save.
func (ps *PlayerSession) Tap(x, y float64) (float64, bool, error) {
	sm := ps.manager
	now := sm.now()
	if !ps.guard.Allow(x, y, now) {
		sm.metrics.RecordTap("ignored", 0)
		return 0, false, nil
	}

	ps.mu.Lock()
	if ps.stopped {
		ps.mu.Unlock()
		return 0, false, ErrSessionClosed
	}
	ps.lastActive = now
	next, reward, err := game.Tap(ps.state, sm.ranks)
	if err == nil {
		ps.state = next
		ps.pendingSync = true
		ps.seq++
	}
	ps.mu.Unlock()

	if err != nil {
		sm.metrics.RecordTap("rejected", 0)
		return 0, false, err
	}
	sm.metrics.RecordTap("accepted", reward)
	return reward, true, nil
}

func (ps *PlayerSession) Purchase(typeID string) (*models.DeviceInstance, error) {
	var device *models.DeviceInstance
	err := ps.apply("purchase", func(s *models.PlayerSnapshot, now time.Time) (*models.PlayerSnapshot, error) {
		next, d, err := game.Purchase(s, ps.manager.catalog, typeID, now)
		device = d
		return next, err
	})
	if err == nil {
		ps.warnUnknown()
	}
	return device, err
}

func (ps *PlayerSession) Sell(category models.DeviceCategory, slot int) (float64, error) {
	var refund float64
	err := ps.apply("sell", func(s *models.PlayerSnapshot, now time.Time) (*models.PlayerSnapshot, error) {
		next, r, err := game.Sell(s, ps.manager.catalog, category, slot, now)
		refund = r
		return next, err
	})
	return refund, err
}

func (ps *PlayerSession) UnlockSlot(category models.DeviceCategory) (float64, error) {
	var cost float64
	err := ps.apply("unlock_slot", func(s *models.PlayerSnapshot, _ time.Time) (*models.PlayerSnapshot, error) {
		next, c, err := game.UnlockSlot(s, category)
		cost = c
		return next, err
	})
	return cost, err
}

func (ps *PlayerSession) Exchange(amount float64) error {
	return ps.apply("exchange", func(s *models.PlayerSnapshot, _ time.Time) (*models.PlayerSnapshot, error) {
		return game.Exchange(s, amount)
	})
}

func (ps *PlayerSession) RequestWithdrawal(amount float64, method models.WithdrawalMethod, address string) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := ps.apply("withdrawal", func(s *models.PlayerSnapshot, now time.Time) (*models.PlayerSnapshot, error) {
		next, r, err := game.RequestWithdrawal(s, amount, method, address, now)
		req = r
		return next, err
	})
	return req, err
}

func (ps *PlayerSession) RequestDeposit(amountSilver float64) (*models.DepositRequest, error) {
	var req *models.DepositRequest
	err := ps.apply("deposit", func(s *models.PlayerSnapshot, now time.Time) (*models.PlayerSnapshot, error) {
		next, r, err := game.RequestDeposit(s, amountSilver, now)
		req = r
		return next, err
	})
	return req, err
}

func (ps *PlayerSession) ClaimDaily() (game.DailyReward, error) {
	var reward game.DailyReward
	err := ps.apply("daily", func(s *models.PlayerSnapshot, now time.Time) (*models.PlayerSnapshot, error) {
		next, r, err := game.ClaimDaily(s, now)
		reward = r
		return next, err
	})
	return reward, err
}

func (ps *PlayerSession) ClaimTask(taskID string) (game.Task, error) {
	var task game.Task
	err := ps.apply("task", func(s *models.PlayerSnapshot, _ time.Time) (*models.PlayerSnapshot, error) {
		next, t, err := game.ClaimTask(s, taskID)
		task = t
		return next, err
	})
	return task, err
}

func (ps *PlayerSession) ClaimReferral(friendID int64) (float64, error) {
	var reward float64
	err := ps.apply("referral_reward", func(s *models.PlayerSnapshot, _ time.Time) (*models.PlayerSnapshot, error) {
		next, r, err := game.ClaimReferralReward(s, friendID)
		reward = r
		return next, err
	})
	return reward, err
}

// AddReferral lists a newly joined friend on this sponsor's live state.
func (ps *PlayerSession) AddReferral(friendID int64, username string) error {
	return ps.apply("referral_join", func(s *models.PlayerSnapshot, _ time.Time) (*models.PlayerSnapshot, error) {
		next, added := game.AddReferral(s, friendID, username)
		if !added {
			return nil, game.ErrAlreadyReferred
		}
		return next, nil
	})
}
