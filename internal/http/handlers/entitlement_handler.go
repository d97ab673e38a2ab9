package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/arbiter-backend/internal/http/handlers/common"
	"github.com/ignatzorin/arbiter-backend/internal/service"
)

// EntitlementHandler отдаёт клиенту его тариф и остаток дневной квоты.
type EntitlementHandler struct {
	entitlements *service.EntitlementService
}

// NewEntitlementHandler создаёт хэндлер.
func NewEntitlementHandler(entitlements *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

// Get обрабатывает GET /entitlements.
func (h *EntitlementHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	snap, err := h.entitlements.Snapshot(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snap)
}
