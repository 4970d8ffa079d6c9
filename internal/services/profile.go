package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
)

// ProfileService is the gate between a verified login and a live session:
// it loads or creates the stored snapshot, applies offline catch-up once
// and links referrals.
type ProfileService struct {
	store    ProfileStore
	sessions *SessionManager

	mu    sync.Mutex
	locks map[int64]*userLock
}

// userLock serializes logins of one user; the entry lives while anyone
// holds or waits for it.
type userLock struct {
	sync.Mutex
	refs int
}

func NewProfileService(store ProfileStore, sessions *SessionManager) *ProfileService {
	return &ProfileService{
		store:    store,
		sessions: sessions,
		locks:    make(map[int64]*userLock),
	}
}

func (p *ProfileService) lockUser(userID int64) *userLock {
	p.mu.Lock()
	l, ok := p.locks[userID]
	if !ok {
		l = &userLock{}
		p.locks[userID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return l
}

func (p *ProfileService) unlockUser(userID int64, l *userLock) {
	l.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(p.locks, userID)
	}
}

// Open returns the player's live session, starting one if needed.
// referrerID is the sponsor from the launch link, or zero.
func (p *ProfileService) Open(ctx context.Context, user *models.TelegramUser, referrerID int64) (*PlayerSession, error) {
	if s, ok := p.sessions.Get(user.ID); ok {
		s.touch()
		return s, nil
	}

	lock := p.lockUser(user.ID)
	defer p.unlockUser(user.ID, lock)

	if s, ok := p.sessions.Get(user.ID); ok {
		return s, nil
	}

	var (
		record *models.PlayerSnapshot
		linked bool
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		record, linked, err = p.catchUp(ctx, user, referrerID)
		if !errors.Is(err, ErrVersionConflict) {
			break
		}
		log.Printf("[Profile] version conflict opening user %d, reloading", user.ID)
	}
	if err != nil {
		return nil, err
	}

	session := p.sessions.Start(record)

	if linked {
		if err := p.linkReferral(ctx, referrerID, user); err != nil {
			log.Printf("[Profile] failed to list user %d under sponsor %d: %v", user.ID, referrerID, err)
		}
	}
	return session, nil
}

func (p *ProfileService) catchUp(ctx context.Context, user *models.TelegramUser, referrerID int64) (*models.PlayerSnapshot, bool, error) {
	now := p.sessions.now()
	catalog, ranks := p.sessions.Catalog(), p.sessions.Ranks()

	stored, err := p.store.LoadProfile(ctx, user.ID)
	if errors.Is(err, ErrProfileNotFound) {
		stored = models.NewSnapshot(user.ID, user.Username, user.DisplayName(), now)
		log.Printf("[Profile] created profile for user %d", user.ID)
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to load profile: %v", err)
	}

	snap := game.Sanitize(stored)
	if user.Username != "" {
		snap.Username = user.Username
	}

	linked := false
	if referrerID != 0 && referrerID != user.ID {
		snap, linked = game.SetReferrer(snap, referrerID)
	}

	snap = game.Advance(snap, catalog, ranks, now)
	record := game.Normalize(snap, ranks, now)

	start := time.Now()
	version, err := p.store.SaveProfile(ctx, record)
	p.sessions.metrics.RecordSave("login", err, time.Since(start))
	if err != nil {
		return nil, false, err
	}
	record.Version = version
	return record, linked, nil
}

// linkReferral lists the friend on the sponsor's profile. A live sponsor
// session takes the change directly; otherwise the stored profile is
// updated.
func (p *ProfileService) linkReferral(ctx context.Context, sponsorID int64, friend *models.TelegramUser) error {
	if s, ok := p.sessions.Get(sponsorID); ok {
		err := s.AddReferral(friend.ID, friend.Username)
		if errors.Is(err, game.ErrAlreadyReferred) {
			return nil
		}
		if !errors.Is(err, ErrSessionClosed) {
			return err
		}
		// Stopped after its final save; update the stored profile instead.
	}

	for attempt := 0; attempt < 2; attempt++ {
		sponsor, err := p.store.LoadProfile(ctx, sponsorID)
		if errors.Is(err, ErrProfileNotFound) {
			log.Printf("[Profile] sponsor %d of user %d has no profile", sponsorID, friend.ID)
			return nil
		}
		if err != nil {
			return err
		}

		next, added := game.AddReferral(sponsor, friend.ID, friend.Username)
		if !added {
			return nil
		}
		_, err = p.store.AdminSaveProfile(ctx, next)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}

		// The sponsor may have logged in meanwhile.
		if s, ok := p.sessions.Get(sponsorID); ok {
			return s.Refresh(ctx)
		}
		return nil
	}
	return ErrVersionConflict
}
