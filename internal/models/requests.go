package models

// PaymentRequest is the checkout form submission that finalizes an order.
// The authorization token is filled in by the Klarna widget after shopper
// approval; field names mirror the storefront checkout form.
type PaymentRequest struct {
	OrderID            uint   `json:"order_id" binding:"required"`
	AuthorizationToken string `json:"klarna_payments_authorization_token"`

	BillingFirstName string `json:"billing_first_name"`
	BillingLastName  string `json:"billing_last_name"`
	BillingEmail     string `json:"billing_email"`
	BillingPhone     string `json:"billing_phone"`
	BillingAddress1  string `json:"billing_address_1"`
	BillingAddress2  string `json:"billing_address_2"`
	BillingPostcode  string `json:"billing_postcode"`
	BillingCity      string `json:"billing_city"`
	BillingState     string `json:"billing_state"`
	BillingCountry   string `json:"billing_country"`

	ShipToDifferentAddress bool   `json:"ship_to_different_address"`
	ShippingFirstName      string `json:"shipping_first_name"`
	ShippingLastName       string `json:"shipping_last_name"`
	ShippingAddress1       string `json:"shipping_address_1"`
	ShippingAddress2       string `json:"shipping_address_2"`
	ShippingPostcode       string `json:"shipping_postcode"`
	ShippingCity           string `json:"shipping_city"`
	ShippingState          string `json:"shipping_state"`
	ShippingCountry        string `json:"shipping_country"`
}

// PaymentResponse reports the outcome of a payment submission. Redirect is
// empty on failure so the storefront keeps the shopper on the checkout form.
type PaymentResponse struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CheckoutSessionResponse carries everything the storefront needs to render
// the hosted widget.
type CheckoutSessionResponse struct {
	ClientToken   string `json:"client_token"`
	TestMode      bool   `json:"testmode"`
	Title         string `json:"title"`
	Description   string `json:"description_html,omitempty"`
	ContainerHTML string `json:"container_html"`
}

// FraudNotification is the asynchronous fraud-decision callback body.
type FraudNotification struct {
	EventType string `json:"event_type"`
	OrderID   string `json:"order_id"`
}

// GatewaySettings is the admin-facing gateway configuration.
type GatewaySettings struct {
	Enabled     bool   `json:"enabled"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TestMode    bool   `json:"testmode"`

	MerchantID       string `json:"merchant_id_us"`
	SharedSecret     string `json:"shared_secret_us"`
	TestMerchantID   string `json:"test_merchant_id_us"`
	TestSharedSecret string `json:"test_shared_secret_us"`
}
