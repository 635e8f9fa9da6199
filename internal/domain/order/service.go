package order

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// allocateAttempts bounds the allocate+persist retry loop. With an atomic
// sequence source the first attempt always wins; the loop only spins when a
// non-atomic source races or imported legacy numbers collide.
const allocateAttempts = 5

// retryBaseDelay is the base for the jittered backoff between attempts.
const retryBaseDelay = 25 * time.Millisecond

// LineInput is a raw order line as submitted by the caller. Prices may be
// in the minor unit; the pipeline normalizes before validating.
type LineInput struct {
	ProductID   string
	ProductName string
	ProductSKU  string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// CreateInput is the raw order-creation payload handed over by the HTTP
// layer. Subtotal, Tax, and Total are optional caller-submitted figures
// used solely for cross-checking; they never overwrite computed values.
// Any caller-submitted shipping cost is ignored outright: shipping comes
// from the zone table alone.
type CreateInput struct {
	CustomerRef   string
	Lines         []LineInput
	TaxRate       decimal.Decimal
	Discount      decimal.Decimal
	DiscountType  DiscountType
	DeliveryZone  Zone
	Billing       BillingInfo
	Delivery      DeliveryAddress
	PaymentMethod string
	PaymentRef    string
	CreatedBy     string

	Subtotal *decimal.Decimal
	Tax      *decimal.Decimal
	Total    *decimal.Decimal
}

// NumberAllocator is the allocation seam of the pipeline; satisfied by
// *Allocator in production wiring.
type NumberAllocator interface {
	Allocate(ctx context.Context, now time.Time) (string, error)
}

// Service is the validation pipeline: it turns raw order input into a
// persisted, internally consistent Order aggregate, or a typed rejection.
type Service struct {
	orders    Repository
	allocator NumberAllocator
	now       func() time.Time
}

// NewService creates the pipeline with its storage and allocation
// collaborators.
func NewService(orders Repository, allocator NumberAllocator) *Service {
	return &Service{
		orders:    orders,
		allocator: allocator,
		now:       time.Now,
	}
}

// CreateOrder runs the full pipeline: structural checks, currency
// normalization, authoritative recomputation, monetary cross-checks,
// format validation, number allocation, and atomic persistence.
//
// Failures before allocation are client errors (InputValidationError or
// MonetaryMismatchError). Allocation and persistence failures surface as
// AllocationError and are safe to retry wholesale.
func (s *Service) CreateOrder(ctx context.Context, in CreateInput) (*Order, error) {
	if err := checkStructure(in); err != nil {
		return nil, err
	}

	norm := normalizeInput(in)

	pricing, err := ComputePricing(norm.lines, in.TaxRate, in.DeliveryZone, norm.discount, in.DiscountType)
	if err != nil {
		return nil, err
	}

	if err := crossCheck(norm, pricing); err != nil {
		return nil, err
	}

	if err := validateBilling(in.Billing); err != nil {
		return nil, err
	}
	if err := validateDelivery(in.Delivery); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &Order{
		CustomerRef:   in.CustomerRef,
		Lines:         norm.lines,
		Subtotal:      pricing.Subtotal,
		Tax:           pricing.Tax,
		TaxRate:       in.TaxRate,
		Discount:      pricing.DiscountAmount,
		DiscountType:  in.DiscountType,
		ShippingCost:  pricing.ShippingCost,
		Total:         pricing.Total,
		DeliveryZone:  in.DeliveryZone,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		PaymentMethod: in.PaymentMethod,
		PaymentRef:    in.PaymentRef,
		Billing:       in.Billing,
		Delivery:      in.Delivery,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := assertAssembly(o); err != nil {
		// Unreachable when the pipeline above is correct; a failure here is
		// a defect, not client input.
		return nil, err
	}

	return s.allocateAndPersist(ctx, o, now)
}

// GetOrder fetches a previously created order by its number.
func (s *Service) GetOrder(ctx context.Context, number string) (*Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

// allocateAndPersist allocates an order number and persists the aggregate,
// retrying with jittered backoff when the number collides. With the atomic
// counter source a collision means someone wrote that number out of band
// (e.g. legacy import); re-allocating advances past it.
func (s *Service) allocateAndPersist(ctx context.Context, o *Order, now time.Time) (*Order, error) {
	var lastErr error
	for attempt := 1; attempt <= allocateAttempts; attempt++ {
		number, err := s.allocator.Allocate(ctx, now)
		if err != nil {
			return nil, &AllocationError{Attempts: attempt, Err: err}
		}
		o.OrderNumber = number

		err = s.orders.Create(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return nil, errors.Wrap(err, "persist order")
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jitteredDelay(attempt)):
		}
	}
	return nil, &AllocationError{Attempts: allocateAttempts, Err: lastErr}
}

// jitteredDelay grows linearly with the attempt and adds up to 100% jitter
// so contending requests spread out.
func jitteredDelay(attempt int) time.Duration {
	base := retryBaseDelay * time.Duration(attempt)
	return base + time.Duration(rand.Int63n(int64(base)))
}

// checkStructure rejects inputs the rest of the pipeline cannot reason
// about: empty carts, non-positive quantities, negative prices, and
// out-of-range rates.
func checkStructure(in CreateInput) error {
	if len(in.Lines) == 0 {
		return invalidf("lines", "at least one line is required")
	}
	for i, line := range in.Lines {
		if line.Quantity < 1 {
			return invalidf(lineField(i, "quantity"), "must be at least 1, got %d", line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return invalidf(lineField(i, "unit_price"), "must not be negative")
		}
		if line.TotalPrice.IsNegative() {
			return invalidf(lineField(i, "total_price"), "must not be negative")
		}
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return invalidf("tax_rate", "must be within [0, 1], got %s", in.TaxRate)
	}
	if in.Discount.IsNegative() {
		return invalidf("discount", "must not be negative")
	}
	if !in.DiscountType.Valid() {
		return invalidf("discount_type", "must be %q or %q", DiscountPercentage, DiscountFixed)
	}
	if !in.DeliveryZone.Valid() {
		return invalidf("delivery_zone", "unknown zone %q", string(in.DeliveryZone))
	}
	return nil
}

// normalized carries the pipeline's post-normalization view of the input.
type normalized struct {
	lines    []Line
	discount decimal.Decimal
	subtotal *decimal.Decimal
	tax      *decimal.Decimal
	total    *decimal.Decimal
}

// normalizeInput applies the minor-unit heuristic to every monetary field.
// The caller-submitted subtotal is normalized first without a reference,
// then serves as the shared reference for everything else, so all
// conversions are mutually consistent.
func normalizeInput(in CreateInput) normalized {
	var ref *decimal.Decimal
	var n normalized

	if in.Subtotal != nil {
		sub := NormalizeAmount(*in.Subtotal, nil)
		n.subtotal = &sub
		ref = &sub
	}

	n.lines = make([]Line, len(in.Lines))
	for i, line := range in.Lines {
		n.lines[i] = Line{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ProductSKU:  line.ProductSKU,
			Quantity:    line.Quantity,
			UnitPrice:   NormalizeAmount(line.UnitPrice, ref),
			TotalPrice:  NormalizeAmount(line.TotalPrice, ref),
		}
	}

	n.discount = NormalizeAmount(in.Discount, ref)
	if in.Tax != nil {
		tax := NormalizeAmount(*in.Tax, ref)
		n.tax = &tax
	}
	if in.Total != nil {
		total := NormalizeAmount(*in.Total, ref)
		n.total = &total
	}
	return n
}

// crossCheck compares normalized caller figures against the recomputed
// truth. A mismatch beyond the tolerance is reported with both figures and
// is never silently corrected.
func crossCheck(n normalized, p Pricing) error {
	for i, line := range n.lines {
		expected := LineTotal(line)
		if !withinTolerance(line.TotalPrice, expected) {
			return &MonetaryMismatchError{
				Field:    lineField(i, "total_price"),
				Provided: line.TotalPrice,
				Computed: expected,
			}
		}
	}
	if n.subtotal != nil && !withinTolerance(*n.subtotal, p.Subtotal) {
		return &MonetaryMismatchError{Field: "subtotal", Provided: *n.subtotal, Computed: p.Subtotal}
	}
	if n.tax != nil && !withinTolerance(*n.tax, p.Tax) {
		return &MonetaryMismatchError{Field: "tax", Provided: *n.tax, Computed: p.Tax}
	}
	if n.total != nil && !withinTolerance(*n.total, p.Total) {
		return &MonetaryMismatchError{Field: "total", Provided: *n.total, Computed: p.Total}
	}
	return nil
}

// assertAssembly re-verifies the aggregate invariants right before
// persistence. These cannot fail unless the pipeline itself is broken.
func assertAssembly(o *Order) error {
	if len(o.Lines) == 0 {
		return errors.New("assembly invariant violated: empty lines")
	}

	sum := decimal.Zero
	for _, line := range o.Lines {
		sum = sum.Add(line.TotalPrice)
	}
	if !o.Subtotal.Equal(round2(sum)) {
		return errors.Errorf("assembly invariant violated: subtotal %s != line sum %s", o.Subtotal, round2(sum))
	}

	shipping, ok := o.DeliveryZone.ShippingCost()
	if !ok || !o.ShippingCost.Equal(shipping) {
		return errors.Errorf("assembly invariant violated: shipping %s for zone %s", o.ShippingCost, o.DeliveryZone)
	}

	if !o.Tax.Equal(round2(o.Subtotal.Mul(o.TaxRate))) {
		return errors.Errorf("assembly invariant violated: tax %s", o.Tax)
	}

	expected := round2(o.Subtotal.Add(o.Tax).Add(o.ShippingCost).Sub(o.Discount))
	if !o.Total.Equal(expected) {
		return errors.Errorf("assembly invariant violated: total %s != %s", o.Total, expected)
	}
	return nil
}

func lineField(i int, name string) string {
	return fmt.Sprintf("lines[%d].%s", i, name)
}
