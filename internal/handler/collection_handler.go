package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/internal/service"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
	"github.com/noah-isme/class-treasury-api/pkg/response"
)

// fundsInvalidator drops the cached funds dashboard after money moves.
type fundsInvalidator interface {
	InvalidateFunds(ctx context.Context)
}

// CollectionHandler exposes collection lifecycle and schema endpoints.
type CollectionHandler struct {
	collections *service.CollectionService
	remittances *service.RemittanceService
	dashboard   fundsInvalidator
}

// NewCollectionHandler constructs CollectionHandler.
func NewCollectionHandler(collections *service.CollectionService, remittances *service.RemittanceService, dashboard fundsInvalidator) *CollectionHandler {
	return &CollectionHandler{collections: collections, remittances: remittances, dashboard: dashboard}
}

func (h *CollectionHandler) invalidateFunds(c *gin.Context) {
	if h.dashboard != nil {
		h.dashboard.InvalidateFunds(c.Request.Context())
	}
}

// List godoc
// @Summary List collections
// @Tags Collections
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /collections [get]
func (h *CollectionHandler) List(c *gin.Context) {
	var filter models.CollectionFilter
	filter.Status = models.CollectionStatus(strings.ToUpper(c.Query("status")))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	collections, total, err := h.collections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collections, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get collection detail
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id} [get]
func (h *CollectionHandler) Get(c *gin.Context) {
	collection, err := h.collections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// Create godoc
// @Summary Create collection
// @Tags Collections
// @Accept json
// @Produce json
// @Param payload body service.CreateCollectionRequest true "Collection payload"
// @Success 201 {object} response.Envelope
// @Router /collections [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	var req service.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.collections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update collection
// @Description Removing answered fields requires force=true and scrubs their answers.
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param payload body service.UpdateCollectionRequest true "Collection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /collections/{id} [put]
func (h *CollectionHandler) Update(c *gin.Context) {
	var req service.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.collections.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete collection
// @Description Deleting a collection with recorded payments requires force=true.
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Param force query bool false "Acknowledge recorded payments"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /collections/{id} [delete]
func (h *CollectionHandler) Delete(c *gin.Context) {
	force := c.Query("force") == "true"
	if err := h.collections.Delete(c.Request.Context(), c.Param("id"), force); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateFunds(c)
	response.NoContent(c)
}

// DuplicateField godoc
// @Summary Duplicate a custom field
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Param fieldId path string true "Field ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/fields/{fieldId}/duplicate [post]
func (h *CollectionHandler) DuplicateField(c *gin.Context) {
	collection, err := h.collections.DuplicateField(c.Request.Context(), c.Param("id"), c.Param("fieldId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// LinkValueSet godoc
// @Summary Link a value set to a field
// @Description Snapshots the set's options onto the field. Later set edits do not propagate.
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param fieldId path string true "Field ID"
// @Param payload body map[string]string true "value_set_id"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/fields/{fieldId}/value-set [post]
func (h *CollectionHandler) LinkValueSet(c *gin.Context) {
	var payload struct {
		ValueSetID string `json:"value_set_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "value_set_id required"))
		return
	}
	collection, err := h.collections.LinkValueSet(c.Request.Context(), c.Param("id"), c.Param("fieldId"), payload.ValueSetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// UnlinkValueSet godoc
// @Summary Unlink a value set from a field
// @Description Clears the link only. Snapshotted options stay on the field.
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Param fieldId path string true "Field ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/fields/{fieldId}/value-set [delete]
func (h *CollectionHandler) UnlinkValueSet(c *gin.Context) {
	collection, err := h.collections.UnlinkValueSet(c.Request.Context(), c.Param("id"), c.Param("fieldId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// AddSubFieldFromValueSet godoc
// @Summary Add a sub-field under an option from a value set
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param fieldId path string true "Field ID"
// @Param optionId path string true "Option ID"
// @Param payload body map[string]string true "value_set_id"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/fields/{fieldId}/options/{optionId}/sub-fields [post]
func (h *CollectionHandler) AddSubFieldFromValueSet(c *gin.Context) {
	var payload struct {
		ValueSetID string `json:"value_set_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "value_set_id required"))
		return
	}
	collection, err := h.collections.AddSubFieldFromValueSet(c.Request.Context(), c.Param("id"), c.Param("fieldId"), c.Param("optionId"), payload.ValueSetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// Remit godoc
// @Summary Remit a collection
// @Description Records the handover and freezes the collection's payments.
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param payload body service.RemitRequest true "Remit payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /collections/{id}/remit [post]
func (h *CollectionHandler) Remit(c *gin.Context) {
	var req service.RemitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	remittance, err := h.remittances.Remit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateFunds(c)
	response.JSON(c, http.StatusOK, remittance, nil)
}

// Archive godoc
// @Summary Archive a remitted collection
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 204
// @Router /collections/{id}/archive [post]
func (h *CollectionHandler) Archive(c *gin.Context) {
	if err := h.remittances.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unarchive godoc
// @Summary Restore an archived collection to remitted
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 204
// @Router /collections/{id}/unarchive [post]
func (h *CollectionHandler) Unarchive(c *gin.Context) {
	if err := h.remittances.Unarchive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
