package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func targetUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) ListProfiles(c *gin.Context) {
	profiles, totals, err := h.admin.ListProfiles(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list profiles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profiles": profiles,
		"totals":   totals,
	})
}

func (h *AdminHandler) GetProfile(c *gin.Context) {
	userID, ok := targetUserID(c)
	if !ok {
		return
	}

	profile, err := h.admin.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to load profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *AdminHandler) ApproveDeposit(c *gin.Context) {
	var req models.ApproveDepositRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	profile, err := h.admin.ApproveDeposit(c.Request.Context(), c.GetInt64("user_id"), c.Param("id"), req.CreditedAmount)
	if err != nil {
		respondError(c, "Failed to approve deposit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

func (h *AdminHandler) RejectDeposit(c *gin.Context) {
	profile, err := h.admin.RejectDeposit(c.Request.Context(), c.GetInt64("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to reject deposit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	profile, err := h.admin.ApproveWithdrawal(c.Request.Context(), c.GetInt64("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to approve withdrawal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	profile, err := h.admin.RejectWithdrawal(c.Request.Context(), c.GetInt64("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to reject withdrawal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

func (h *AdminHandler) CreditSilver(c *gin.Context) {
	userID, ok := targetUserID(c)
	if !ok {
		return
	}
	var req models.AdminCreditRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.admin.CreditSilver(c.Request.Context(), c.GetInt64("user_id"), userID, req.Amount)
	if err != nil {
		respondError(c, "Failed to credit silver", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

func (h *AdminHandler) PatchProfile(c *gin.Context) {
	userID, ok := targetUserID(c)
	if !ok {
		return
	}
	var patch game.AdminPatch
	if !bindJSON(c, &patch) {
		return
	}

	profile, err := h.admin.PatchProfile(c.Request.Context(), c.GetInt64("user_id"), userID, patch)
	if err != nil {
		respondError(c, "Failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

func (h *AdminHandler) GetLogs(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	logs, err := h.admin.Logs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "Failed to read admin log", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
