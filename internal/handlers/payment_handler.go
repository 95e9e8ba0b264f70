package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/service"
)

// PaymentHandler finalizes orders from checkout submissions.
type PaymentHandler struct {
	payments *service.PaymentService
	settings *service.SettingsService
}

func NewPaymentHandler(payments *service.PaymentService, settings *service.SettingsService) *PaymentHandler {
	return &PaymentHandler{payments: payments, settings: settings}
}

// Process places the order with Klarna using the widget's authorization
// token. Failures come back as a failure result with an empty redirect so
// the storefront keeps the shopper on the checkout form with the cart
// intact.
func (h *PaymentHandler) Process(c *gin.Context) {
	if !h.settings.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Klarna Payments is not available"})
		return
	}

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.payments.ProcessPayment(c.Request.Context(), req)
	if err != nil || !result.Success {
		c.JSON(http.StatusOK, models.PaymentResponse{
			Result:  "failure",
			Message: result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, models.PaymentResponse{
		Result:   "success",
		Redirect: result.Redirect,
	})
}
