package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"klarna-payments-backend/internal/config"
	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/payments"
	"klarna-payments-backend/internal/payments/klarna"
	"klarna-payments-backend/internal/repository"
	"klarna-payments-backend/pkg/logger"
)

// ErrMissingAuthorizationToken rejects a payment submission before any
// remote call. The token is added to the form by the widget once
// authorization completes; its absence means the shopper never finished
// the Klarna flow.
var ErrMissingAuthorizationToken = errors.New("could not create Klarna Payments authorization token")

// PaymentResult is the structured outcome handed back to the storefront.
type PaymentResult struct {
	Success  bool
	Redirect string
	Message  string
}

// PaymentService finalizes an order from the widget's authorization token:
// it places the order with Klarna, maps the fraud decision onto the order,
// emits the matching event and clears the checkout session state.
type PaymentService struct {
	orders   repository.OrderRepository
	lines    OrderLinesProvider
	sessions *SessionService
	clients  ClientSource
	emitter  payments.Emitter
	cfg      *config.Config
}

func NewPaymentService(
	orders repository.OrderRepository,
	lines OrderLinesProvider,
	sessions *SessionService,
	clients ClientSource,
	emitter payments.Emitter,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		orders:   orders,
		lines:    lines,
		sessions: sessions,
		clients:  clients,
		emitter:  emitter,
		cfg:      cfg,
	}
}

// CheckAuthorizationToken validates the submission before payment
// processing starts.
func (s *PaymentService) CheckAuthorizationToken(req models.PaymentRequest) error {
	if strings.TrimSpace(req.AuthorizationToken) == "" {
		return ErrMissingAuthorizationToken
	}
	return nil
}

// ProcessPayment places the order with Klarna and applies the fraud
// decision. Failures leave the order untouched and return a failure result
// with a shopper-facing message.
func (s *PaymentService) ProcessPayment(ctx context.Context, req models.PaymentRequest) (*PaymentResult, error) {
	if err := s.CheckAuthorizationToken(req); err != nil {
		return &PaymentResult{Message: err.Error()}, err
	}

	order, err := s.orders.GetByID(req.OrderID)
	if err != nil {
		return &PaymentResult{Message: "order not found"}, err
	}

	placed, err := s.placeOrder(ctx, order, req)
	if err != nil {
		logger.Error(err, "Klarna order placement failed", map[string]interface{}{
			"order_id": order.ID,
		})
		return &PaymentResult{Message: userMessage(err)}, nil
	}

	event := payments.PlacedOrderEvent{
		OrderID:       order.ID,
		KlarnaOrderID: placed.OrderID,
		FraudStatus:   placed.FraudStatus,
	}

	switch placed.FraudStatus {
	case payments.FraudStatusAccepted:
		if err := s.orders.PaymentComplete(order.ID, placed.OrderID); err != nil {
			return &PaymentResult{Message: "failed to record payment"}, err
		}
		_ = s.orders.AddNote(order.ID, "Payment via Klarna Payments, order ID: "+placed.OrderID)
		_ = s.orders.AddMeta(order.ID, models.MetaKlarnaOrderID, placed.OrderID)
		s.emitter.Emit(payments.EventAccepted, event)

	case payments.FraudStatusPending:
		if err := s.orders.UpdateStatus(order.ID, models.OrderStatusOnHold); err != nil {
			return &PaymentResult{Message: "failed to record payment"}, err
		}
		_ = s.orders.AddNote(order.ID, "Klarna order is under review.")
		_ = s.orders.AddMeta(order.ID, models.MetaKlarnaPending, "yes")
		s.emitter.Emit(payments.EventPending, event)

	case payments.FraudStatusRejected:
		if err := s.orders.UpdateStatus(order.ID, models.OrderStatusOnHold); err != nil {
			return &PaymentResult{Message: "failed to record payment"}, err
		}
		_ = s.orders.AddNote(order.ID, "Klarna order was rejected.")
		s.emitter.Emit(payments.EventRejected, event)
		return &PaymentResult{Message: "Klarna payment rejected"}, nil
	}

	env := "live"
	if s.clients.TestMode() {
		env = "test"
	}
	_ = s.orders.SetMeta(order.ID, models.MetaKlarnaEnv, env)

	if err := s.sessions.Reset(ctx, order.CheckoutID); err != nil {
		logger.Warn("Failed to clear checkout session after payment", map[string]interface{}{
			"order_id":    order.ID,
			"checkout_id": order.CheckoutID,
			"error":       err.Error(),
		})
	}

	return &PaymentResult{
		Success:  true,
		Redirect: s.returnURL(order.ID),
	}, nil
}

func (s *PaymentService) placeOrder(ctx context.Context, order *models.Order, req models.PaymentRequest) (*klarna.PlacedOrder, error) {
	client, err := s.clients.Client()
	if err != nil {
		return nil, err
	}

	lines, err := s.lines.OrderLines(ctx, order.CheckoutID)
	if err != nil {
		return nil, err
	}

	billing, shipping := s.buildAddresses(req)

	return client.PlaceOrder(ctx, req.AuthorizationToken, klarna.OrderRequest{
		Lines:             lines,
		BillingAddress:    billing,
		ShippingAddress:   shipping,
		MerchantReference: strconv.FormatUint(uint64(order.ID), 10),
		MerchantURLs: klarna.MerchantURLs{
			Confirmation: s.returnURL(order.ID),
			Notification: fmt.Sprintf("%s/api/v1/klarna/notifications?order_id=%d", strings.TrimRight(s.cfg.PublicURL, "/"), order.ID),
		},
	})
}

// buildAddresses maps the posted form fields. Shipping mirrors billing
// unless the shopper asked for a separate address and the deployment
// allows one.
func (s *PaymentService) buildAddresses(req models.PaymentRequest) (payments.Address, payments.Address) {
	billing := payments.Address{
		GivenName:      req.BillingFirstName,
		FamilyName:     req.BillingLastName,
		Email:          req.BillingEmail,
		Phone:          req.BillingPhone,
		StreetAddress:  req.BillingAddress1,
		StreetAddress2: req.BillingAddress2,
		PostalCode:     req.BillingPostcode,
		City:           req.BillingCity,
		Region:         req.BillingState,
		Country:        req.BillingCountry,
	}

	if !req.ShipToDifferentAddress || s.cfg.ShipToBillingOnly {
		return billing, billing
	}

	shipping := payments.Address{
		GivenName:      req.ShippingFirstName,
		FamilyName:     req.ShippingLastName,
		Email:          req.BillingEmail,
		Phone:          req.BillingPhone,
		StreetAddress:  req.ShippingAddress1,
		StreetAddress2: req.ShippingAddress2,
		PostalCode:     req.ShippingPostcode,
		City:           req.ShippingCity,
		Region:         req.ShippingState,
		Country:        req.ShippingCountry,
	}
	return billing, shipping
}

func (s *PaymentService) returnURL(orderID uint) string {
	return fmt.Sprintf("%s/checkout/order-received/%d", strings.TrimRight(s.cfg.SiteURL, "/"), orderID)
}

func userMessage(err error) string {
	var apiErr *klarna.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Klarna error failed. %d - %s.", apiErr.Code, apiErr.Message)
	}
	return err.Error()
}
