package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/payments/klarna"
	"klarna-payments-backend/internal/service"
)

// signatureTolerance bounds how stale a signed notification may be.
const signatureTolerance = 5 * time.Minute

// NotificationHandler receives asynchronous fraud-decision callbacks.
type NotificationHandler struct {
	notifications *service.NotificationService
	webhookSecret string
}

func NewNotificationHandler(notifications *service.NotificationService, webhookSecret string) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		webhookSecret: webhookSecret,
	}
}

// Handle applies one fraud notification. The order is addressed by the
// order_id query parameter; the body carries Klarna's own order reference.
// Callbacks without an order id and unknown event types are acknowledged
// without action. When a webhook secret is configured the payload signature
// is verified first.
func (h *NotificationHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.webhookSecret != "" {
		header := c.GetHeader(klarna.NotificationSignatureHeader)
		if err := klarna.VerifyNotificationSignature(body, header, h.webhookSecret, signatureTolerance); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid notification signature"})
			return
		}
	}

	rawID := c.Query("order_id")
	if rawID == "" {
		c.Status(http.StatusOK)
		return
	}

	orderID, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	var notification models.FraudNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification body"})
		return
	}

	h.notifications.HandleNotification(uint(orderID), notification)
	c.Status(http.StatusOK)
}
