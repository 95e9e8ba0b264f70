package payments

// Event names emitted after an order is placed, one per fraud decision.
const (
	EventAccepted = "accepted"
	EventPending  = "pending"
	EventRejected = "rejected"
)

// PlacedOrderEvent carries the outcome of a placed order to subscribers.
type PlacedOrderEvent struct {
	OrderID       uint
	KlarnaOrderID string
	FraudStatus   FraudStatus
}

// Emitter publishes placed-order events to registered subscribers.
type Emitter interface {
	Emit(name string, event PlacedOrderEvent)
}

// SyncEmitter invokes subscribers in registration order on the calling
// goroutine.
type SyncEmitter struct {
	subscribers map[string][]func(PlacedOrderEvent)
}

func NewSyncEmitter() *SyncEmitter {
	return &SyncEmitter{subscribers: make(map[string][]func(PlacedOrderEvent))}
}

// Subscribe registers a callback for the named event. Not safe for
// concurrent use with Emit; register everything during wiring.
func (e *SyncEmitter) Subscribe(name string, fn func(PlacedOrderEvent)) {
	if fn == nil {
		return
	}
	e.subscribers[name] = append(e.subscribers[name], fn)
}

func (e *SyncEmitter) Emit(name string, event PlacedOrderEvent) {
	for _, fn := range e.subscribers[name] {
		fn(event)
	}
}
