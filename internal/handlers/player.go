package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

type PlayerHandler struct {
	players *liveSessions
}

func NewPlayerHandler(manager *services.SessionManager, profiles *services.ProfileService, users AuthStore) *PlayerHandler {
	return &PlayerHandler{
		players: &liveSessions{manager: manager, profiles: profiles, users: users},
	}
}

func (h *PlayerHandler) session(c *gin.Context) (*services.PlayerSession, bool) {
	player, err := h.players.get(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		respondError(c, "Failed to load profile", err)
		return nil, false
	}
	return player, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func (h *PlayerHandler) GetState(c *gin.Context) {
	player, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, player.State())
}

func (h *PlayerHandler) GetCatalog(c *gin.Context) {
	manager := h.players.manager
	c.JSON(http.StatusOK, gin.H{
		"miners":        manager.Catalog().ByCategory(models.CategoryMiner),
		"generators":    manager.Catalog().ByCategory(models.CategoryGenerator),
		"ranks":         manager.Ranks(),
		"daily_rewards": game.DailyRewards,
		"tasks":         game.Tasks,
		"rules": gin.H{
			"exchange_ratio":      game.ExchangeRatio,
			"min_withdrawal_gold": game.MinWithdrawalGold,
			"silver_per_usd":      game.SilverPerUSD,
			"referral_reward":     game.ReferralReward,
			"tap_energy_cost":     game.TapEnergyCost,
			"tap_min_energy":      game.TapMinEnergy,
			"slot_count":          models.SlotCount,
		},
	})
}

func (h *PlayerHandler) Tap(c *gin.Context) {
	var req models.TapRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	reward, accepted, err := player.Tap(req.X, req.Y)
	if err != nil {
		respondError(c, "Tap rejected", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"reward":   reward,
		"state":    player.State(),
	})
}

func (h *PlayerHandler) PurchaseDevice(c *gin.Context) {
	var req models.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	device, err := player.Purchase(req.TypeID)
	if err != nil {
		respondError(c, "Failed to purchase device", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device":  device,
		"state":   player.State(),
	})
}

func (h *PlayerHandler) SellDevice(c *gin.Context) {
	var req models.SellRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	refund, err := player.Sell(req.Category, *req.Slot)
	if err != nil {
		respondError(c, "Failed to sell device", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"refund":  refund,
		"state":   player.State(),
	})
}

func (h *PlayerHandler) UnlockSlot(c *gin.Context) {
	var req models.UnlockSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	cost, err := player.UnlockSlot(req.Category)
	if err != nil {
		respondError(c, "Failed to unlock slot", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cost":    cost,
		"state":   player.State(),
	})
}

func (h *PlayerHandler) Exchange(c *gin.Context) {
	var req models.ExchangeRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	if err := player.Exchange(req.Amount); err != nil {
		respondError(c, "Failed to exchange", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   player.State(),
	})
}

func (h *PlayerHandler) CreateWithdrawal(c *gin.Context) {
	var req models.WithdrawalCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	request, err := player.RequestWithdrawal(req.Amount, req.Method, req.Address)
	if err != nil {
		respondError(c, "Failed to create withdrawal", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"withdrawal": request,
		"state":      player.State(),
	})
}

func (h *PlayerHandler) CreateDeposit(c *gin.Context) {
	var req models.DepositCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	request, err := player.RequestDeposit(req.AmountSilver)
	if err != nil {
		respondError(c, "Failed to create deposit", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deposit": request,
		"state":   player.State(),
	})
}

func (h *PlayerHandler) ClaimDaily(c *gin.Context) {
	player, ok := h.session(c)
	if !ok {
		return
	}

	reward, err := player.ClaimDaily()
	if err != nil {
		respondError(c, "Failed to claim daily reward", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reward":  reward,
		"state":   player.State(),
	})
}

func (h *PlayerHandler) ClaimTask(c *gin.Context) {
	var req models.TaskClaimRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	task, err := player.ClaimTask(req.TaskID)
	if err != nil {
		respondError(c, "Failed to claim task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task":    task,
		"state":   player.State(),
	})
}

func (h *PlayerHandler) ClaimReferral(c *gin.Context) {
	var req models.ReferralClaimRequest
	if !bindJSON(c, &req) {
		return
	}
	player, ok := h.session(c)
	if !ok {
		return
	}

	reward, err := player.ClaimReferral(req.FriendID)
	if err != nil {
		respondError(c, "Failed to claim referral reward", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reward":  reward,
		"state":   player.State(),
	})
}
