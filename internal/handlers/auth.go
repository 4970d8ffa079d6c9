package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

const initDataMaxAge = 24 * time.Hour

type AuthHandler struct {
	users      AuthStore
	jwtService *services.JWTService
	profiles   *services.ProfileService
	botToken   string
}

func NewAuthHandler(users AuthStore, jwtService *services.JWTService, profiles *services.ProfileService, botToken string) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		profiles:   profiles,
		botToken:   botToken,
	}
}

// Authenticate verifies the Mini App initData, opens the player's session
// and issues an API token. A start_param holding a user id links the
// sponsor on first login.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	initData := c.Query("init_data")
	if initData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}

	data, err := services.VerifyInitData(initData, h.botToken, initDataMaxAge, time.Now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid Telegram data",
			"details": err.Error(),
		})
		return
	}
	user := data.User

	now := time.Now()
	session := &models.UserSession{
		ID:           user.ID,
		SessionID:    models.GenerateSessionID(),
		TelegramUser: user,
		CreatedAt:    now,
		LastAccessed: now,
	}

	if err := h.users.StoreUser(&user); err != nil {
		log.Printf("Failed to store user %d: %v", user.ID, err)
	}
	if err := h.users.StoreUserSession(session, services.TTLUserSession); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, session.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	player, err := h.profiles.Open(c.Request.Context(), &user, data.ReferrerID())
	if err != nil {
		respondError(c, "Failed to load profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
		"state": player.State(),
	})
}
