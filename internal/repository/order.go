package repository

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/retail-orders/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (
		order_number, customer_ref, lines, subtotal, tax, tax_rate,
		discount, discount_type, shipping_cost, total, delivery_zone,
		status, payment_status, payment_method, payment_ref,
		billing, delivery_address, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

const getOrderSQL = `SELECT
		order_number, customer_ref, lines, subtotal, tax, tax_rate,
		discount, discount_type, shipping_cost, total, delivery_zone,
		status, payment_status, payment_method, payment_ref,
		billing, delivery_address, created_by, created_at, updated_at
	FROM orders WHERE order_number = $1`

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items, billing, and the delivery address are serialized to JSONB; all
// monetary columns are NUMERIC read back as decimals.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. A unique-index hit on order_number maps to
// order.ErrDuplicateNumber so the pipeline can retry allocation.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return errors.Wrap(err, "marshal order lines")
	}
	billingJSON, err := json.Marshal(o.Billing)
	if err != nil {
		return errors.Wrap(err, "marshal billing info")
	}
	addressJSON, err := json.Marshal(o.Delivery)
	if err != nil {
		return errors.Wrap(err, "marshal delivery address")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.OrderNumber, o.CustomerRef, linesJSON, o.Subtotal, o.Tax, o.TaxRate,
		o.Discount, string(o.DiscountType), o.ShippingCost, o.Total, string(o.DeliveryZone),
		string(o.Status), string(o.PaymentStatus), o.PaymentMethod, o.PaymentRef,
		billingJSON, addressJSON, o.CreatedBy, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrDuplicateNumber
		}
		return errors.Wrapf(err, "create order %q", o.OrderNumber)
	}

	return nil
}

// GetByNumber fetches a single order by its order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, getOrderSQL, number)

	var (
		o            order.Order
		discountType string
		zone         string
		status       string
		payStatus    string
		linesJSON    []byte
		billingJSON  []byte
		addressJSON  []byte
	)
	err := row.Scan(
		&o.OrderNumber, &o.CustomerRef, &linesJSON, &o.Subtotal, &o.Tax, &o.TaxRate,
		&o.Discount, &discountType, &o.ShippingCost, &o.Total, &zone,
		&status, &payStatus, &o.PaymentMethod, &o.PaymentRef,
		&billingJSON, &addressJSON, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "fetch order %q", number)
	}

	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return nil, errors.Wrap(err, "unmarshal order lines")
	}
	if err := json.Unmarshal(billingJSON, &o.Billing); err != nil {
		return nil, errors.Wrap(err, "unmarshal billing info")
	}
	if err := json.Unmarshal(addressJSON, &o.Delivery); err != nil {
		return nil, errors.Wrap(err, "unmarshal delivery address")
	}

	o.DiscountType = order.DiscountType(discountType)
	o.DeliveryZone = order.Zone(zone)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(payStatus)

	return &o, nil
}
