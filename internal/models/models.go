package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses. An order starts pending, moves to processing once payment
// completes, and lands on hold when Klarna keeps the decision open.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusOnHold     = "on-hold"
	OrderStatusCancelled  = "cancelled"
)

// Meta keys attached to orders during the Klarna flow.
const (
	MetaKlarnaOrderID = "klarna_payments_order_id"
	MetaKlarnaPending = "klarna_payments_pending"
	MetaKlarnaEnv     = "klarna_payments_env"
)

type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CheckoutID string `gorm:"index" json:"checkout_id"`
	Status     string `gorm:"type:varchar(32);default:'pending'" json:"status"`

	TotalCents int64  `gorm:"not null" json:"total_cents"`
	TaxCents   int64  `gorm:"not null" json:"tax_cents"`
	Currency   string `gorm:"type:varchar(3);default:'USD'" json:"currency"`

	// TransactionID is the external (Klarna) order id recorded when payment
	// completes.
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	Notes []OrderNote `gorm:"foreignKey:OrderID" json:"notes,omitempty"`
	Meta  []OrderMeta `gorm:"foreignKey:OrderID" json:"meta,omitempty"`
}

// OrderNote is an append-only audit entry on an order.
type OrderNote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID uint   `gorm:"index;not null" json:"order_id"`
	Note    string `gorm:"type:text;not null" json:"note"`
}

// OrderMeta is a key/value annotation on an order.
type OrderMeta struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID uint   `gorm:"index;not null;uniqueIndex:idx_order_meta_key" json:"order_id"`
	Key     string `gorm:"not null;uniqueIndex:idx_order_meta_key" json:"key"`
	Value   string `json:"value"`
}

// Cart is the shopper's in-progress purchase, addressed by checkout id.
type Cart struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CheckoutID string `gorm:"uniqueIndex;not null" json:"checkout_id"`

	// Shipping price in minor units, tax included, with its rate in
	// hundredths of a percent.
	ShippingCents   int64 `json:"shipping_cents"`
	ShippingTaxRate int64 `json:"shipping_tax_rate"`

	Items []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
}

// CartItem is one purchasable line. UnitPriceCents is tax inclusive;
// TaxRate is expressed in hundredths of a percent (1900 = 19%).
type CartItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CartID uint `gorm:"index;not null" json:"cart_id"`

	Reference      string `json:"reference"`
	Name           string `gorm:"not null" json:"name"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
	Quantity       int64  `gorm:"not null;default:1" json:"quantity"`
	TaxRate        int64  `gorm:"not null;default:0" json:"tax_rate"`
}

// Setting is one persisted configuration value.
type Setting struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Key   string `gorm:"uniqueIndex;not null" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}
