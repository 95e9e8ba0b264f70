package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"klarna-payments-backend/internal/payments/klarna"
	"klarna-payments-backend/internal/session"
	"klarna-payments-backend/pkg/logger"
)

// SessionError is the terminal failure of a session call. Its presence
// makes the gateway unavailable for the rest of the checkout render.
type SessionError struct {
	Code    int
	Message string
}

func (e *SessionError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d - %s", e.Code, e.Message)
}

func newSessionError(err error) *SessionError {
	var apiErr *klarna.APIError
	if errors.As(err, &apiErr) {
		return &SessionError{Code: apiErr.Code, Message: apiErr.Message}
	}
	return &SessionError{Message: err.Error()}
}

// PaymentSession is the session identity held for a checkout. Both fields
// are always stored or cleared together, never one without the other.
type PaymentSession struct {
	SessionID   string
	ClientToken string
}

// SessionService owns the payment-session lifecycle: when to create versus
// update the remote session, the update-failure fallback to create, and the
// session identifiers kept in the checkout store.
//
// Two concurrent requests for one checkout may both establish a session;
// the store's last write wins and the next call heals any lost identity.
type SessionService struct {
	clients ClientSource
	store   session.Store
	lines   OrderLinesProvider

	mu      sync.Mutex
	errored map[string]*SessionError
}

func NewSessionService(clients ClientSource, store session.Store, lines OrderLinesProvider) *SessionService {
	return &SessionService{
		clients: clients,
		store:   store,
		lines:   lines,
		errored: make(map[string]*SessionError),
	}
}

// EnsureSession establishes a usable payment session for the checkout: a
// fresh create when no session id is held, otherwise an update of the held
// session with create as the fallback. Repeated calls with a valid held id
// never create a second session.
func (s *SessionService) EnsureSession(ctx context.Context, checkoutID string) (*PaymentSession, error) {
	s.clearError(checkoutID)

	held, err := s.store.Get(ctx, checkoutID, session.KeySessionID)
	if err != nil {
		return nil, err
	}

	if held == "" {
		return s.createSession(ctx, checkoutID)
	}
	return s.updateOrRecreate(ctx, checkoutID, held)
}

// RefreshSession is the cart-recalculation path. It always goes through
// update first, even when no session id is held yet: the update call on an
// empty id fails upstream and falls through to create. Keeping that route
// avoids special-casing the race between the initial page load and the
// first recalculation.
func (s *SessionService) RefreshSession(ctx context.Context, checkoutID string) (*PaymentSession, error) {
	s.clearError(checkoutID)

	held, err := s.store.Get(ctx, checkoutID, session.KeySessionID)
	if err != nil {
		return nil, err
	}

	return s.updateOrRecreate(ctx, checkoutID, held)
}

func (s *SessionService) createSession(ctx context.Context, checkoutID string) (*PaymentSession, error) {
	client, err := s.clients.Client()
	if err != nil {
		return nil, err
	}

	lines, err := s.lines.OrderLines(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	handle, err := client.CreateSession(ctx, lines)
	if err != nil {
		logger.Error(err, "Klarna session create failed", map[string]interface{}{
			"checkout_id": checkoutID,
		})
		if clearErr := s.clearStored(ctx, checkoutID); clearErr != nil {
			return nil, clearErr
		}
		sessionErr := newSessionError(err)
		s.setError(checkoutID, sessionErr)
		return nil, sessionErr
	}

	if err := s.storeHandle(ctx, checkoutID, handle); err != nil {
		return nil, err
	}

	logger.Info("Klarna session created", map[string]interface{}{
		"checkout_id": checkoutID,
		"session_id":  handle.SessionID,
	})
	return &PaymentSession{SessionID: handle.SessionID, ClientToken: handle.ClientToken}, nil
}

func (s *SessionService) updateOrRecreate(ctx context.Context, checkoutID, held string) (*PaymentSession, error) {
	client, err := s.clients.Client()
	if err != nil {
		return nil, err
	}

	lines, err := s.lines.OrderLines(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if err := client.UpdateSession(ctx, held, lines); err == nil {
		// Update responses carry no new token; the stored one stays valid.
		token, err := s.store.Get(ctx, checkoutID, session.KeyClientToken)
		if err != nil {
			return nil, err
		}
		return &PaymentSession{SessionID: held, ClientToken: token}, nil
	} else {
		logger.Warn("Klarna session update failed, recreating", map[string]interface{}{
			"checkout_id": checkoutID,
			"session_id":  held,
			"error":       err.Error(),
		})
	}

	if err := s.clearStored(ctx, checkoutID); err != nil {
		return nil, err
	}

	return s.createSession(ctx, checkoutID)
}

// Reset drops the held session identifiers so the next checkout starts
// fresh. Called after successful order placement.
func (s *SessionService) Reset(ctx context.Context, checkoutID string) error {
	s.clearError(checkoutID)
	return s.clearStored(ctx, checkoutID)
}

// Errored returns the sticky session error recorded for the checkout, if
// any. It stays set until the next EnsureSession or RefreshSession attempt.
func (s *SessionService) Errored(checkoutID string) *SessionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errored[checkoutID]
}

func (s *SessionService) storeHandle(ctx context.Context, checkoutID string, handle *klarna.SessionHandle) error {
	if err := s.store.Set(ctx, checkoutID, session.KeySessionID, handle.SessionID); err != nil {
		return err
	}
	if err := s.store.Set(ctx, checkoutID, session.KeyClientToken, handle.ClientToken); err != nil {
		// Keep the invariant: no session id without its client token.
		_ = s.store.Unset(ctx, checkoutID, session.KeySessionID)
		return err
	}
	return nil
}

func (s *SessionService) clearStored(ctx context.Context, checkoutID string) error {
	if err := s.store.Unset(ctx, checkoutID, session.KeySessionID); err != nil {
		return err
	}
	return s.store.Unset(ctx, checkoutID, session.KeyClientToken)
}

func (s *SessionService) setError(checkoutID string, err *SessionError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored[checkoutID] = err
}

func (s *SessionService) clearError(checkoutID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errored, checkoutID)
}
