package handlers

import (
	"context"
	"time"

	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

// AuthStore keeps Telegram users and their auth sessions.
type AuthStore interface {
	StoreUser(user *models.TelegramUser) error
	GetUser(userID int64) (*models.TelegramUser, error)
	StoreUserSession(session *models.UserSession, expiry time.Duration) error
	GetUserSession(userID int64, sessionID string) (*models.UserSession, error)
	DeleteUserSession(userID int64, sessionID string) error
}

// liveSessions resolves the caller's running player session. A valid token
// whose session was swept or lost in a restart gets it reopened.
type liveSessions struct {
	manager  *services.SessionManager
	profiles *services.ProfileService
	users    AuthStore
}

func (l *liveSessions) get(ctx context.Context, userID int64) (*services.PlayerSession, error) {
	if s, ok := l.manager.Get(userID); ok {
		return s, nil
	}

	user, err := l.users.GetUser(userID)
	if err != nil || user == nil {
		user = &models.TelegramUser{ID: userID}
	}
	return l.profiles.Open(ctx, user, 0)
}
