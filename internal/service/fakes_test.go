package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/payments"
	"klarna-payments-backend/internal/payments/klarna"
)

// scriptedClient replays queued responses and records every call.
type scriptedClient struct {
	createResults []createResult
	updateErrs    []error
	placeResults  []placeResult

	createCalls  int
	updateCalls  int
	placeCalls   int
	updatedIDs   []string
	placedTokens []string
}

type createResult struct {
	handle *klarna.SessionHandle
	err    error
}

type placeResult struct {
	order *klarna.PlacedOrder
	err   error
}

var errUnexpectedCall = errors.New("unexpected client call")

func (c *scriptedClient) CreateSession(ctx context.Context, lines payments.OrderLines) (*klarna.SessionHandle, error) {
	c.createCalls++
	if len(c.createResults) == 0 {
		return nil, errUnexpectedCall
	}
	result := c.createResults[0]
	c.createResults = c.createResults[1:]
	return result.handle, result.err
}

func (c *scriptedClient) UpdateSession(ctx context.Context, sessionID string, lines payments.OrderLines) error {
	c.updateCalls++
	c.updatedIDs = append(c.updatedIDs, sessionID)
	if len(c.updateErrs) == 0 {
		return errUnexpectedCall
	}
	err := c.updateErrs[0]
	c.updateErrs = c.updateErrs[1:]
	return err
}

func (c *scriptedClient) PlaceOrder(ctx context.Context, authToken string, order klarna.OrderRequest) (*klarna.PlacedOrder, error) {
	c.placeCalls++
	c.placedTokens = append(c.placedTokens, authToken)
	if len(c.placeResults) == 0 {
		return nil, errUnexpectedCall
	}
	result := c.placeResults[0]
	c.placeResults = c.placeResults[1:]
	return result.order, result.err
}

// fakeClientSource hands out a fixed client, mimicking settings-backed
// client construction.
type fakeClientSource struct {
	client   PaymentsClient
	err      error
	testMode bool
}

func (s *fakeClientSource) Client() (PaymentsClient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

func (s *fakeClientSource) TestMode() bool { return s.testMode }

// linesStub returns a fixed snapshot and counts how often it is asked,
// verifying that snapshots are recomputed per call.
type linesStub struct {
	snapshot payments.OrderLines
	err      error
	calls    int
}

func (l *linesStub) OrderLines(ctx context.Context, checkoutID string) (payments.OrderLines, error) {
	l.calls++
	if l.err != nil {
		return payments.OrderLines{}, l.err
	}
	return l.snapshot, nil
}

// memoryOrderRepository implements repository.OrderRepository in memory.
type memoryOrderRepository struct {
	orders map[uint]*models.Order
	notes  map[uint][]string
	meta   map[uint]map[string]string
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{
		orders: make(map[uint]*models.Order),
		notes:  make(map[uint][]string),
		meta:   make(map[uint]map[string]string),
	}
}

func (r *memoryOrderRepository) GetByID(id uint) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *memoryOrderRepository) PaymentComplete(id uint, transactionID string) error {
	order, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	order.Status = models.OrderStatusProcessing
	order.TransactionID = transactionID
	order.PaidAt = &now
	return nil
}

func (r *memoryOrderRepository) UpdateStatus(id uint, status string) error {
	order, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	return nil
}

func (r *memoryOrderRepository) AddNote(orderID uint, note string) error {
	r.notes[orderID] = append(r.notes[orderID], note)
	return nil
}

func (r *memoryOrderRepository) AddMeta(orderID uint, key, value string) error {
	if r.meta[orderID] == nil {
		r.meta[orderID] = make(map[string]string)
	}
	if _, exists := r.meta[orderID][key]; !exists {
		r.meta[orderID][key] = value
	}
	return nil
}

func (r *memoryOrderRepository) SetMeta(orderID uint, key, value string) error {
	if r.meta[orderID] == nil {
		r.meta[orderID] = make(map[string]string)
	}
	r.meta[orderID][key] = value
	return nil
}

// memorySettingRepository implements repository.SettingRepository in memory.
type memorySettingRepository struct {
	values map[string]string
}

func newMemorySettingRepository() *memorySettingRepository {
	return &memorySettingRepository{values: make(map[string]string)}
}

func (r *memorySettingRepository) Get(key string) (*models.Setting, error) {
	value, ok := r.values[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Setting{Key: key, Value: value}, nil
}

func (r *memorySettingRepository) Set(key, value string) error {
	r.values[key] = value
	return nil
}

func (r *memorySettingRepository) Delete(key string) error {
	delete(r.values, key)
	return nil
}

// recordingEmitter captures emitted events by name.
type recordingEmitter struct {
	events map[string][]payments.PlacedOrderEvent
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{events: make(map[string][]payments.PlacedOrderEvent)}
}

func (e *recordingEmitter) Emit(name string, event payments.PlacedOrderEvent) {
	e.events[name] = append(e.events[name], event)
}
