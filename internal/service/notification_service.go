package service

import (
	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/repository"
	"klarna-payments-backend/pkg/logger"
)

// Fraud notification event types.
const (
	EventFraudRiskAccepted = "FRAUD_RISK_ACCEPTED"
	EventFraudRiskRejected = "FRAUD_RISK_REJECTED"
	EventFraudRiskStopped  = "FRAUD_RISK_STOPPED"
)

// NotificationService applies asynchronous fraud decisions to orders.
//
// The order is looked up by the id from the callback URL, while the
// recorded external id comes from the notification body. The two are not
// cross-checked; Klarna's body order_id is its own order reference, not
// ours.
type NotificationService struct {
	orders repository.OrderRepository
}

func NewNotificationService(orders repository.OrderRepository) *NotificationService {
	return &NotificationService{orders: orders}
}

// HandleNotification applies one fraud decision. Unknown event types and
// unknown orders are acknowledged as no-ops.
func (s *NotificationService) HandleNotification(orderID uint, notification models.FraudNotification) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		logger.Warn("Fraud notification for unknown order", map[string]interface{}{
			"order_id":   orderID,
			"event_type": notification.EventType,
		})
		return
	}

	switch notification.EventType {
	case EventFraudRiskAccepted:
		if err := s.orders.PaymentComplete(order.ID, notification.OrderID); err != nil {
			logger.Error(err, "Failed to complete payment from notification", map[string]interface{}{
				"order_id": order.ID,
			})
			return
		}
		_ = s.orders.AddNote(order.ID, "Payment via Klarna Payments, order ID: "+notification.OrderID)
		_ = s.orders.AddMeta(order.ID, models.MetaKlarnaOrderID, notification.OrderID)

	case EventFraudRiskRejected, EventFraudRiskStopped:
		if err := s.orders.UpdateStatus(order.ID, models.OrderStatusCancelled); err != nil {
			logger.Error(err, "Failed to cancel order from notification", map[string]interface{}{
				"order_id": order.ID,
			})
			return
		}
		_ = s.orders.AddNote(order.ID, "Klarna order rejected")

	default:
		logger.Debug("Ignoring unrecognized fraud notification", map[string]interface{}{
			"order_id":   order.ID,
			"event_type": notification.EventType,
		})
	}
}
