package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks fulfilment progress. Transitions are owned by the order
// management layer, not by this package; the pipeline only ever writes
// StatusPending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks payment progress, owned by the payment collaborator.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// DiscountType enumerates the supported order-level discount strategies.
type DiscountType string

const (
	// DiscountPercentage interprets the discount value as a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed interprets the discount value as a fixed monetary amount.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is one of the known discount types.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Line is a single order line. Lines are created once per order and never
// mutated in place; corrections go through a new validation pass.
type Line struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// BillingInfo identifies the paying party. It is owned by the Order and is
// never persisted on its own.
type BillingInfo struct {
	NationalID string `json:"national_id"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
}

// DeliveryAddress is the shipping destination, owned by the Order.
// Latitude/Longitude are optional; when present they must be within bounds.
type DeliveryAddress struct {
	Street         string   `json:"street"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	Zip            string   `json:"zip"`
	Country        string   `json:"country"`
	RecipientName  string   `json:"recipient_name"`
	RecipientPhone string   `json:"recipient_phone"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	MapLink        string   `json:"map_link,omitempty"`
}

// Order is the aggregate produced by the validation pipeline. Monetary
// fields and lines are immutable after construction; only status fields
// may change afterwards, and that happens outside this package.
type Order struct {
	OrderNumber   string
	CustomerRef   string
	Lines         []Line
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	TaxRate       decimal.Decimal
	Discount      decimal.Decimal
	DiscountType  DiscountType
	ShippingCost  decimal.Decimal
	Total         decimal.Decimal
	DeliveryZone  Zone
	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod string
	PaymentRef    string
	Billing       BillingInfo
	Delivery      DeliveryAddress
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository defines persistence operations for orders. Create must enforce
// order number uniqueness and return ErrDuplicateNumber on collision.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)
}
