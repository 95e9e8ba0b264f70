package payments

// FraudStatus is Klarna's risk decision for a placed order.
type FraudStatus string

const (
	FraudStatusAccepted FraudStatus = "ACCEPTED"
	FraudStatusPending  FraudStatus = "PENDING"
	FraudStatusRejected FraudStatus = "REJECTED"
)

// Known reports whether the status is one of the documented decisions.
func (s FraudStatus) Known() bool {
	switch s {
	case FraudStatusAccepted, FraudStatusPending, FraudStatusRejected:
		return true
	}
	return false
}

// LineItem describes a single order line in minor currency units.
type LineItem struct {
	Reference      string `json:"reference,omitempty"`
	Name           string `json:"name"`
	Quantity       int64  `json:"quantity"`
	UnitPrice      int64  `json:"unit_price"`
	TaxRate        int64  `json:"tax_rate"`
	TotalAmount    int64  `json:"total_amount"`
	TotalTaxAmount int64  `json:"total_tax_amount"`
}

// OrderLines is the snapshot of the cart sent on every session call.
// It is recomputed per call, never cached: fees, shipping and totals may
// have changed between calls.
type OrderLines struct {
	OrderAmount    int64      `json:"order_amount"`
	OrderTaxAmount int64      `json:"order_tax_amount"`
	Lines          []LineItem `json:"order_lines"`
}

// Address is the billing or shipping address submitted with an order.
type Address struct {
	GivenName      string `json:"given_name"`
	FamilyName     string `json:"family_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	StreetAddress  string `json:"street_address"`
	StreetAddress2 string `json:"street_address2"`
	PostalCode     string `json:"postal_code"`
	City           string `json:"city"`
	Region         string `json:"region"`
	Country        string `json:"country"`
}
