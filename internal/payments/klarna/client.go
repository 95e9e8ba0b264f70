package klarna

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"klarna-payments-backend/internal/payments"
)

const (
	// LiveBaseURL is the North America production API host.
	LiveBaseURL = "https://api-na.klarna.com"
	// PlaygroundBaseURL is the North America sandbox API host.
	PlaygroundBaseURL = "https://api-na.playground.klarna.com"
)

// The gateway currently serves a single market. Purchase country, currency
// and locale are fixed until multi-market credentials are introduced.
const (
	purchaseCountry  = "US"
	purchaseCurrency = "USD"
	purchaseLocale   = "en-US"
)

// Credentials is one merchant id / shared secret pair.
type Credentials struct {
	MerchantID   string
	SharedSecret string
}

// Configured reports whether both halves of the pair are present.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.MerchantID) != "" && strings.TrimSpace(c.SharedSecret) != ""
}

// APIError is a non-success HTTP status returned by Klarna.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("klarna returned %d: %s", e.Code, e.Message)
}

// ErrUnknownFraudStatus is returned when a placed order carries a fraud
// status outside the documented set.
var ErrUnknownFraudStatus = errors.New("klarna order has unknown fraud status")

// SessionHandle identifies a created payment session. SessionID addresses
// the session server-side; ClientToken bootstraps the hosted widget.
type SessionHandle struct {
	SessionID   string
	ClientToken string
}

// PlacedOrder is the outcome of exchanging an authorization token.
type PlacedOrder struct {
	OrderID     string
	FraudStatus payments.FraudStatus
}

// MerchantURLs are the confirmation and notification endpoints sent with a
// placed order.
type MerchantURLs struct {
	Confirmation string `json:"confirmation"`
	Notification string `json:"notification"`
}

// OrderRequest is the payload for placing an order from an authorization.
type OrderRequest struct {
	Lines             payments.OrderLines
	BillingAddress    payments.Address
	ShippingAddress   payments.Address
	MerchantReference string
	MerchantURLs      MerchantURLs
}

// Client issues authenticated requests against the Klarna Payments REST API.
// It is stateless; session identity lives in the checkout session store.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	credentials Credentials
	userAgent   string
}

// NewClient constructs a client for the given API host and credential pair.
func NewClient(baseURL string, credentials Credentials) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("klarna base url is required")
	}
	if !credentials.Configured() {
		return nil, errors.New("klarna merchant id and shared secret are required")
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		userAgent:   "klarna-payments-backend/klarna-client",
	}, nil
}

// BaseURL selects the production or playground host from the test-mode flag.
func BaseURL(testMode bool) string {
	if testMode {
		return PlaygroundBaseURL
	}
	return LiveBaseURL
}

type sessionPayload struct {
	PurchaseCountry  string              `json:"purchase_country"`
	PurchaseCurrency string              `json:"purchase_currency"`
	Locale           string              `json:"locale"`
	OrderAmount      int64               `json:"order_amount"`
	OrderTaxAmount   int64               `json:"order_tax_amount"`
	OrderLines       []payments.LineItem `json:"order_lines"`
}

type orderPayload struct {
	sessionPayload
	BillingAddress     payments.Address `json:"billing_address"`
	ShippingAddress    payments.Address `json:"shipping_address"`
	MerchantReference1 string           `json:"merchant_reference1"`
	MerchantURLs       MerchantURLs     `json:"merchant_urls"`
}

func newSessionPayload(lines payments.OrderLines) sessionPayload {
	return sessionPayload{
		PurchaseCountry:  purchaseCountry,
		PurchaseCurrency: purchaseCurrency,
		Locale:           purchaseLocale,
		OrderAmount:      lines.OrderAmount,
		OrderTaxAmount:   lines.OrderTaxAmount,
		OrderLines:       lines.Lines,
	}
}

func (c *Client) newRequest(ctx context.Context, path string, body interface{}) (*http.Request, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.credentials.MerchantID + ":" + c.credentials.SharedSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(op, outcomeTransportError)
		return nil, fmt.Errorf("klarna request failed: %w", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) *APIError {
	message := http.StatusText(resp.StatusCode)
	if message == "" {
		message = resp.Status
	}
	return &APIError{Code: resp.StatusCode, Message: message}
}

// CreateSession creates a new payment session from the current order lines.
// Success requires HTTP 200 with both session id and client token present.
func (c *Client) CreateSession(ctx context.Context, lines payments.OrderLines) (*SessionHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := c.newRequest(ctx, "/credit/v1/sessions", newSessionPayload(lines))
	if err != nil {
		return nil, err
	}

	resp, err := c.do(opCreateSession, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observeRequest(opCreateSession, outcomeAPIError)
		return nil, apiError(resp)
	}

	var payload struct {
		SessionID   string `json:"session_id"`
		ClientToken string `json:"client_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		observeRequest(opCreateSession, outcomeDecodeError)
		return nil, fmt.Errorf("klarna session response decode failed: %w", err)
	}

	if payload.SessionID == "" || payload.ClientToken == "" {
		observeRequest(opCreateSession, outcomeDecodeError)
		return nil, errors.New("klarna session response missing session id or client token")
	}

	observeRequest(opCreateSession, outcomeSuccess)
	return &SessionHandle{SessionID: payload.SessionID, ClientToken: payload.ClientToken}, nil
}

// UpdateSession pushes the current order lines into an existing session.
// Success requires HTTP 204; the client token is unchanged on update.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, lines payments.OrderLines) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := c.newRequest(ctx, "/credit/v1/sessions/"+sessionID, newSessionPayload(lines))
	if err != nil {
		return err
	}

	resp, err := c.do(opUpdateSession, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		observeRequest(opUpdateSession, outcomeAPIError)
		return apiError(resp)
	}

	observeRequest(opUpdateSession, outcomeSuccess)
	return nil
}

// PlaceOrder exchanges the widget's authorization token for a placed order.
// Success requires HTTP 200 and a fraud status from the documented set; an
// unrecognized status is reported instead of being silently accepted.
func (c *Client) PlaceOrder(ctx context.Context, authToken string, order OrderRequest) (*PlacedOrder, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	payload := orderPayload{
		sessionPayload:     newSessionPayload(order.Lines),
		BillingAddress:     order.BillingAddress,
		ShippingAddress:    order.ShippingAddress,
		MerchantReference1: order.MerchantReference,
		MerchantURLs:       order.MerchantURLs,
	}

	req, err := c.newRequest(ctx, "/credit/v1/authorizations/"+authToken+"/order", payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(opPlaceOrder, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observeRequest(opPlaceOrder, outcomeAPIError)
		return nil, apiError(resp)
	}

	var decoded struct {
		OrderID     string `json:"order_id"`
		FraudStatus string `json:"fraud_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		observeRequest(opPlaceOrder, outcomeDecodeError)
		return nil, fmt.Errorf("klarna order response decode failed: %w", err)
	}

	status := payments.FraudStatus(decoded.FraudStatus)
	if !status.Known() {
		observeRequest(opPlaceOrder, outcomeDecodeError)
		return nil, fmt.Errorf("%w: %q", ErrUnknownFraudStatus, decoded.FraudStatus)
	}

	observeRequest(opPlaceOrder, outcomeSuccess)
	return &PlacedOrder{OrderID: decoded.OrderID, FraudStatus: status}, nil
}
