package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"srg-miniapp-backend/internal/services"
)

type UserHandler struct {
	users   AuthStore
	players *liveSessions
}

func NewUserHandler(users AuthStore, manager *services.SessionManager, profiles *services.ProfileService) *UserHandler {
	return &UserHandler{
		users:   users,
		players: &liveSessions{manager: manager, profiles: profiles, users: users},
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	session, err := h.users.GetUserSession(userID.(int64), sessionID.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
		return
	}

	player, err := h.players.get(c.Request.Context(), userID.(int64))
	if err != nil {
		respondError(c, "Failed to load profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": session.TelegramUser,
		"session": gin.H{
			"session_id":    session.SessionID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		},
		"state": player.State(),
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	err := h.users.DeleteUserSession(userID.(int64), sessionID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	h.players.manager.StopSession(userID.(int64))

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
