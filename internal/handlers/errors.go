package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/services"
)

var ruleErrors = []error{
	game.ErrEnergyTooLow,
	game.ErrUnknownDevice,
	game.ErrInsufficientSilver,
	game.ErrInsufficientGold,
	game.ErrInsufficientSRG,
	game.ErrNoFreeSlot,
	game.ErrInvalidSlot,
	game.ErrSlotEmpty,
	game.ErrAllSlotsUnlocked,
	game.ErrInvalidCategory,
	game.ErrInvalidExchangeAmount,
	game.ErrWithdrawalTooSmall,
	game.ErrInvalidAddress,
	game.ErrInvalidMethod,
	game.ErrInvalidDepositAmount,
	game.ErrDailyAlreadyClaimed,
	game.ErrUnknownTask,
	game.ErrTaskAlreadyClaimed,
	game.ErrNotReferred,
	game.ErrRequestFinalized,
	game.ErrInvalidAmount,
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrVersionConflict), errors.Is(err, services.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, services.ErrProfileNotFound), errors.Is(err, game.ErrRequestNotFound):
		return http.StatusNotFound
	}
	for _, rule := range ruleErrors {
		if errors.Is(err, rule) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
