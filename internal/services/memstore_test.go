package services_test

import (
	"context"
	"sync"
	"time"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

// memStore is an in-process ProfileStore and AuditLog with the same
// version semantics as the Redis store.
type memStore struct {
	mu       sync.Mutex
	profiles map[int64]*models.PlayerSnapshot
	audit    []*models.AuditEntry
	saves    int
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[int64]*models.PlayerSnapshot)}
}

func (m *memStore) LoadProfile(ctx context.Context, userID int64) (*models.PlayerSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, services.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (m *memStore) SaveProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error) {
	return m.cas(snapshot)
}

func (m *memStore) AdminSaveProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error) {
	if snapshot.Version == 0 {
		return 0, services.ErrProfileNotFound
	}
	return m.cas(snapshot)
}

func (m *memStore) cas(snapshot *models.PlayerSnapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.profiles[snapshot.UserID]
	switch {
	case ok && stored.Version != snapshot.Version:
		return 0, services.ErrVersionConflict
	case !ok && snapshot.Version != 0:
		return 0, services.ErrProfileNotFound
	}
	record := snapshot.Clone()
	record.Version = snapshot.Version + 1
	m.profiles[snapshot.UserID] = record
	m.saves++
	return record.Version, nil
}

func (m *memStore) ListProfiles(ctx context.Context) ([]*models.PlayerSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.PlayerSnapshot, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memStore) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append([]*models.AuditEntry{entry}, m.audit...)
	return nil
}

func (m *memStore) RecentAudit(ctx context.Context, limit int64) ([]*models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > int64(len(m.audit)) {
		limit = int64(len(m.audit))
	}
	return append([]*models.AuditEntry(nil), m.audit[:limit]...), nil
}

// put stores a profile directly, bumping its version like a write would.
func (m *memStore) put(p *models.PlayerSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := p.Clone()
	if prev, ok := m.profiles[p.UserID]; ok {
		record.Version = prev.Version + 1
	} else if record.Version == 0 {
		record.Version = 1
	}
	m.profiles[p.UserID] = record
}

func (m *memStore) get(userID int64) *models.PlayerSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID].Clone()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestManager returns a manager whose background loop never fires during
// a test; tests drive persistence explicitly.
func newTestManager(store services.ProfileStore) (*services.SessionManager, *fakeClock) {
	clock := &fakeClock{now: testEpoch}
	manager := services.NewSessionManager(store, game.DefaultCatalog(), game.DefaultRankTable(), nil, time.Hour, time.Hour)
	manager.SetClock(clock.Now)
	return manager, clock
}
