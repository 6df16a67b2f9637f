package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techlyn/academy-api/internal/service"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
	"github.com/techlyn/academy-api/pkg/response"
)

// PaymentHandler exposes the admin payment review endpoint.
type PaymentHandler struct {
	payments *service.PaymentService
	metrics  *service.MetricsService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, metrics *service.MetricsService) *PaymentHandler {
	return &PaymentHandler{payments: payments, metrics: metrics}
}

// Decide godoc
// @Summary Approve or reject a pending payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.DecidePaymentRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/decide [post]
func (h *PaymentHandler) Decide(c *gin.Context) {
	var req service.DecidePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.payments.Decide(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPaymentDecision(req.Action)
	response.JSON(c, http.StatusOK, result, nil)
}
