package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/internal/service"
	"github.com/noah-isme/class-treasury-api/pkg/response"
)

// HistoryHandler exposes the payment history ledger.
type HistoryHandler struct {
	history *service.HistoryService
}

// NewHistoryHandler constructs HistoryHandler.
func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List godoc
// @Summary List history entries
// @Tags History
// @Produce json
// @Param collectionId query string false "Filter by collection"
// @Param studentId query string false "Filter by student"
// @Param type query string false "Filter by entry type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	var filter models.HistoryFilter
	filter.CollectionID = c.Query("collectionId")
	filter.StudentID = c.Query("studentId")
	filter.Type = models.HistoryType(c.Query("type"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, total, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, paginationFor(filter.Page, filter.PageSize, total))
}
