package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"klarna-payments-backend/internal/config"
	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/payments"
	"klarna-payments-backend/internal/payments/klarna"
	"klarna-payments-backend/internal/session"
)

type paymentFixture struct {
	service *PaymentService
	orders  *memoryOrderRepository
	client  *scriptedClient
	emitter *recordingEmitter
	store   *session.MemoryStore
}

func newPaymentFixture(t *testing.T, client *scriptedClient) *paymentFixture {
	t.Helper()

	orders := newMemoryOrderRepository()
	orders.orders[7] = &models.Order{
		ID:         7,
		CheckoutID: "checkout-7",
		Status:     models.OrderStatusPending,
		TotalCents: 11900,
		TaxCents:   1900,
		Currency:   "USD",
	}

	store := session.NewMemoryStore()
	_ = store.Set(context.Background(), "checkout-7", session.KeySessionID, "s1")
	_ = store.Set(context.Background(), "checkout-7", session.KeyClientToken, "t1")

	lines := &linesStub{snapshot: testSnapshot()}
	source := &fakeClientSource{client: client, testMode: true}
	sessions := NewSessionService(source, store, lines)
	emitter := newRecordingEmitter()
	cfg := &config.Config{
		SiteURL:   "https://shop.example.com",
		PublicURL: "https://pay.example.com",
	}

	return &paymentFixture{
		service: NewPaymentService(orders, lines, sessions, source, emitter, cfg),
		orders:  orders,
		client:  client,
		emitter: emitter,
		store:   store,
	}
}

func paymentRequest() models.PaymentRequest {
	return models.PaymentRequest{
		OrderID:            7,
		AuthorizationToken: "auth-token",
		BillingFirstName:   "Jamie",
		BillingLastName:    "Doe",
		BillingEmail:       "jamie@example.com",
		BillingPhone:       "+15551234567",
		BillingAddress1:    "1 Main St",
		BillingPostcode:    "12345",
		BillingCity:        "Columbus",
		BillingState:       "OH",
		BillingCountry:     "US",
	}
}

func TestProcessPaymentAcceptedMarksOrderPaid(t *testing.T) {
	client := &scriptedClient{
		placeResults: []placeResult{
			{order: &klarna.PlacedOrder{OrderID: "klarna-1", FraudStatus: payments.FraudStatusAccepted}},
		},
	}
	fx := newPaymentFixture(t, client)

	result, err := fx.service.ProcessPayment(context.Background(), paymentRequest())
	if err != nil {
		t.Fatalf("ProcessPayment returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success result, got %+v", result)
	}
	if result.Redirect != "https://shop.example.com/checkout/order-received/7" {
		t.Fatalf("unexpected redirect: %q", result.Redirect)
	}

	order := fx.orders.orders[7]
	if order.Status != models.OrderStatusProcessing {
		t.Fatalf("expected order paid, got status %q", order.Status)
	}
	if order.TransactionID != "klarna-1" {
		t.Fatalf("expected external order id recorded, got %q", order.TransactionID)
	}
	if fx.orders.meta[7][models.MetaKlarnaOrderID] != "klarna-1" {
		t.Fatalf("expected klarna order id meta, got %v", fx.orders.meta[7])
	}
	if fx.orders.meta[7][models.MetaKlarnaEnv] != "test" {
		t.Fatalf("expected test environment meta, got %v", fx.orders.meta[7])
	}
	if len(fx.emitter.events[payments.EventAccepted]) != 1 {
		t.Fatalf("expected accepted event emitted")
	}

	// Session identifiers are cleared so the next checkout starts fresh.
	id, _ := fx.store.Get(context.Background(), "checkout-7", session.KeySessionID)
	token, _ := fx.store.Get(context.Background(), "checkout-7", session.KeyClientToken)
	if id != "" || token != "" {
		t.Fatalf("expected session identifiers cleared, got %q/%q", id, token)
	}
}

func TestProcessPaymentPendingHoldsOrderButRedirects(t *testing.T) {
	client := &scriptedClient{
		placeResults: []placeResult{
			{order: &klarna.PlacedOrder{OrderID: "klarna-2", FraudStatus: payments.FraudStatusPending}},
		},
	}
	fx := newPaymentFixture(t, client)

	result, err := fx.service.ProcessPayment(context.Background(), paymentRequest())
	if err != nil {
		t.Fatalf("ProcessPayment returned error: %v", err)
	}
	if !result.Success || result.Redirect == "" {
		t.Fatalf("pending should still redirect to the received page, got %+v", result)
	}

	order := fx.orders.orders[7]
	if order.Status != models.OrderStatusOnHold {
		t.Fatalf("expected order on hold, got %q", order.Status)
	}
	if fx.orders.meta[7][models.MetaKlarnaPending] != "yes" {
		t.Fatalf("expected pending meta, got %v", fx.orders.meta[7])
	}
	if len(fx.emitter.events[payments.EventPending]) != 1 {
		t.Fatalf("expected pending event emitted")
	}
}

func TestProcessPaymentRejectedFailsWithoutRedirect(t *testing.T) {
	client := &scriptedClient{
		placeResults: []placeResult{
			{order: &klarna.PlacedOrder{OrderID: "klarna-3", FraudStatus: payments.FraudStatusRejected}},
		},
	}
	fx := newPaymentFixture(t, client)

	result, err := fx.service.ProcessPayment(context.Background(), paymentRequest())
	if err != nil {
		t.Fatalf("ProcessPayment returned error: %v", err)
	}
	if result.Success || result.Redirect != "" {
		t.Fatalf("rejected must not redirect, got %+v", result)
	}
	if result.Message != "Klarna payment rejected" {
		t.Fatalf("unexpected message: %q", result.Message)
	}

	if fx.orders.orders[7].Status != models.OrderStatusOnHold {
		t.Fatalf("expected order on hold, got %q", fx.orders.orders[7].Status)
	}
	if len(fx.emitter.events[payments.EventRejected]) != 1 {
		t.Fatalf("expected rejected event emitted")
	}

	// Rejected keeps the session: the shopper stays on checkout.
	id, _ := fx.store.Get(context.Background(), "checkout-7", session.KeySessionID)
	if id != "s1" {
		t.Fatalf("expected session retained after rejection, got %q", id)
	}
}

func TestProcessPaymentRequiresAuthorizationToken(t *testing.T) {
	client := &scriptedClient{}
	fx := newPaymentFixture(t, client)

	req := paymentRequest()
	req.AuthorizationToken = "  "

	result, err := fx.service.ProcessPayment(context.Background(), req)
	if !errors.Is(err, ErrMissingAuthorizationToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure result")
	}
	if client.placeCalls != 0 {
		t.Fatalf("expected no remote call without token, got %d", client.placeCalls)
	}
}

func TestProcessPaymentAPIErrorLeavesOrderUntouched(t *testing.T) {
	client := &scriptedClient{
		placeResults: []placeResult{
			{err: &klarna.APIError{Code: 403, Message: "Forbidden"}},
		},
	}
	fx := newPaymentFixture(t, client)

	result, err := fx.service.ProcessPayment(context.Background(), paymentRequest())
	if err != nil {
		t.Fatalf("API failures map to a failure result, not an error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure result")
	}
	if !strings.Contains(result.Message, "403") {
		t.Fatalf("expected status in message, got %q", result.Message)
	}

	order := fx.orders.orders[7]
	if order.Status != models.OrderStatusPending || order.TransactionID != "" {
		t.Fatalf("expected order untouched, got %+v", order)
	}
	if len(fx.emitter.events) != 0 {
		t.Fatalf("expected no events on failure, got %v", fx.emitter.events)
	}
}

func TestProcessPaymentShippingMirrorsBilling(t *testing.T) {
	client := &scriptedClient{
		placeResults: []placeResult{
			{order: &klarna.PlacedOrder{OrderID: "klarna-4", FraudStatus: payments.FraudStatusAccepted}},
		},
	}
	fx := newPaymentFixture(t, client)

	req := paymentRequest()
	billing, shipping := fx.service.buildAddresses(req)
	if shipping != billing {
		t.Fatalf("expected shipping to mirror billing, got %+v", shipping)
	}

	req.ShipToDifferentAddress = true
	req.ShippingFirstName = "Alex"
	req.ShippingAddress1 = "2 Side St"
	_, shipping = fx.service.buildAddresses(req)
	if shipping.GivenName != "Alex" || shipping.StreetAddress != "2 Side St" {
		t.Fatalf("expected separate shipping address, got %+v", shipping)
	}
	if shipping.Email != req.BillingEmail {
		t.Fatalf("shipping contact uses billing email, got %q", shipping.Email)
	}

	fx.service.cfg.ShipToBillingOnly = true
	billing, shipping = fx.service.buildAddresses(req)
	if shipping != billing {
		t.Fatalf("expected mirror when deployment disallows separate shipping")
	}
}
