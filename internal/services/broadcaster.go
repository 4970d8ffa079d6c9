package services

import "srg-miniapp-backend/internal/models"

// Broadcaster pushes live state to connected clients.
type Broadcaster interface {
	BroadcastSnapshot(userID int64, state *models.StateResponse)
	Connected(userID int64) bool
}
