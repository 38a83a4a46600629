package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-treasury-api/internal/service"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
	"github.com/noah-isme/class-treasury-api/pkg/response"
)

// ValueSetHandler exposes reusable option list endpoints.
type ValueSetHandler struct {
	valueSets *service.ValueSetService
}

// NewValueSetHandler constructs ValueSetHandler.
func NewValueSetHandler(valueSets *service.ValueSetService) *ValueSetHandler {
	return &ValueSetHandler{valueSets: valueSets}
}

// List godoc
// @Summary List value sets
// @Tags ValueSets
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /value-sets [get]
func (h *ValueSetHandler) List(c *gin.Context) {
	sets, err := h.valueSets.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sets, nil)
}

// Get godoc
// @Summary Get value set detail
// @Tags ValueSets
// @Produce json
// @Param id path string true "Value set ID"
// @Success 200 {object} response.Envelope
// @Router /value-sets/{id} [get]
func (h *ValueSetHandler) Get(c *gin.Context) {
	set, err := h.valueSets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}

// Create godoc
// @Summary Create value set
// @Tags ValueSets
// @Accept json
// @Produce json
// @Param payload body service.ValueSetRequest true "Value set payload"
// @Success 201 {object} response.Envelope
// @Router /value-sets [post]
func (h *ValueSetHandler) Create(c *gin.Context) {
	var req service.ValueSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	set, err := h.valueSets.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, set)
}

// Update godoc
// @Summary Update value set
// @Description Editing a set never changes fields that linked it earlier.
// @Tags ValueSets
// @Accept json
// @Produce json
// @Param id path string true "Value set ID"
// @Param payload body service.ValueSetRequest true "Value set payload"
// @Success 200 {object} response.Envelope
// @Router /value-sets/{id} [put]
func (h *ValueSetHandler) Update(c *gin.Context) {
	var req service.ValueSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	set, err := h.valueSets.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}

// Delete godoc
// @Summary Delete value set
// @Tags ValueSets
// @Produce json
// @Param id path string true "Value set ID"
// @Success 204
// @Router /value-sets/{id} [delete]
func (h *ValueSetHandler) Delete(c *gin.Context) {
	if err := h.valueSets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
