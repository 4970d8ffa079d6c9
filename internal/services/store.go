package services

import (
	"context"
	"errors"

	"srg-miniapp-backend/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrVersionConflict = errors.New("profile version conflict")
	ErrSessionClosed   = errors.New("session closed")
)

// ProfileStore persists whole player snapshots. Writes are compare-and-set
// on snapshot.Version: the stored version must equal the one being written,
// and a successful write returns the incremented version.
type ProfileStore interface {
	LoadProfile(ctx context.Context, userID int64) (*models.PlayerSnapshot, error)
	SaveProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error)
	AdminSaveProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error)
	ListProfiles(ctx context.Context) ([]*models.PlayerSnapshot, error)
}

type AuditLog interface {
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	RecentAudit(ctx context.Context, limit int64) ([]*models.AuditEntry, error)
}
