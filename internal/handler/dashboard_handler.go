package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-treasury-api/internal/service"
	"github.com/noah-isme/class-treasury-api/pkg/response"
)

// DashboardHandler exposes aggregate figures for the treasurer's landing page.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Funds godoc
// @Summary Cash currently held by the treasurer
// @Description Totals active collections only. Remitted money has left the treasurer's hands.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/funds [get]
func (h *DashboardHandler) Funds(c *gin.Context) {
	summary, cached, err := h.dashboard.Funds(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": cached})
}
