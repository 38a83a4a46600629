package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-treasury-api/internal/service"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
	"github.com/noah-isme/class-treasury-api/pkg/response"
)

// PaymentHandler exposes payment recording and projection endpoints.
type PaymentHandler struct {
	payments  *service.PaymentService
	dashboard fundsInvalidator
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, dashboard fundsInvalidator) *PaymentHandler {
	return &PaymentHandler{payments: payments, dashboard: dashboard}
}

func (h *PaymentHandler) invalidateFunds(c *gin.Context) {
	if h.dashboard != nil {
		h.dashboard.InvalidateFunds(c.Request.Context())
	}
}

// Record godoc
// @Summary Record a payment
// @Description Upserts the student's payment for a collection. Submitting no amount and no answers removes it.
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.CollectionID = c.Param("id")

	payment, err := h.payments.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateFunds(c)
	if payment == nil {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Roster godoc
// @Summary Payment roster for a collection
// @Description Every included student with amount paid, amount due and rendered answers.
// @Tags Payments
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/payments [get]
func (h *PaymentHandler) Roster(c *gin.Context) {
	roster, err := h.payments.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// AmountDue godoc
// @Summary Amount due for one student
// @Tags Payments
// @Produce json
// @Param id path string true "Collection ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/payments/{studentId}/due [get]
func (h *PaymentHandler) AmountDue(c *gin.Context) {
	due, err := h.payments.AmountDue(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"amount_due": due}, nil)
}

// Breakdown godoc
// @Summary Answer counts per field and choice
// @Tags Payments
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/breakdown [get]
func (h *PaymentHandler) Breakdown(c *gin.Context) {
	breakdown, err := h.payments.Breakdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, breakdown, nil)
}

// MarkAllPaid godoc
// @Summary Mark every unpaid student as paid
// @Description Records each student's amount due. Students already paid or owing nothing are skipped.
// @Tags Payments
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/payments/mark-all-paid [post]
func (h *PaymentHandler) MarkAllPaid(c *gin.Context) {
	marked, err := h.payments.MarkAllPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateFunds(c)
	response.JSON(c, http.StatusOK, gin.H{"marked": marked}, nil)
}

// MarkAllUnpaid godoc
// @Summary Remove every recorded payment
// @Tags Payments
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/payments/mark-all-unpaid [post]
func (h *PaymentHandler) MarkAllUnpaid(c *gin.Context) {
	removed, err := h.payments.MarkAllUnpaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateFunds(c)
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

// Copy godoc
// @Summary Copy payments between collections
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CopyPaymentsRequest true "Copy payload"
// @Success 200 {object} response.Envelope
// @Router /payments/copy [post]
func (h *PaymentHandler) Copy(c *gin.Context) {
	var req service.CopyPaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.payments.CopyPayments(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateFunds(c)
	response.JSON(c, http.StatusOK, result, nil)
}
