package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// --- Mock implementations ---

// mockOrderRepo stores orders in memory and enforces number uniqueness the
// way the real repository's unique index does.
type mockOrderRepo struct {
	mu        sync.Mutex
	created   map[string]Order
	createErr error
	dupLeft   int // force ErrDuplicateNumber on the next N creates
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{created: make(map[string]Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if m.dupLeft > 0 {
		m.dupLeft--
		return ErrDuplicateNumber
	}
	if _, exists := m.created[o.OrderNumber]; exists {
		return ErrDuplicateNumber
	}
	m.created[o.OrderNumber] = *o
	return nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.created[number]
	if !ok {
		return nil, errors.Errorf("order %s not found", number)
	}
	return &o, nil
}

// --- Helpers ---

var testNow = time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC)

func newTestService(repo *mockOrderRepo, seq *memorySequence) *Service {
	svc := NewService(repo, NewAllocator(seq))
	svc.now = func() time.Time { return testNow }
	return svc
}

func validInput() CreateInput {
	return CreateInput{
		CustomerRef: "cust-42",
		Lines: []LineInput{
			{
				ProductID:   "p1",
				ProductName: "Widget",
				ProductSKU:  "WID-001",
				Quantity:    2,
				UnitPrice:   dec("12.50"),
				TotalPrice:  dec("25.00"),
			},
		},
		TaxRate:      dec("0.12"),
		Discount:     decimal.Zero,
		DiscountType: DiscountFixed,
		DeliveryZone: ZoneZ1,
		Billing:      validBilling(),
		Delivery:     validDelivery(),
		CreatedBy:    "agent-7",
	}
}

// --- Tests ---

func TestCreateOrder_RecomputesAllMonetaryFields(t *testing.T) {
	repo := newMockOrderRepo()
	svc := newTestService(repo, newMemorySequence())

	o, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "ORDER-2025-01-001", o.OrderNumber)
	assert.True(t, dec("25.00").Equal(o.Subtotal), "subtotal: %s", o.Subtotal)
	assert.True(t, dec("3.00").Equal(o.Tax), "tax: %s", o.Tax)
	assert.True(t, dec("3.00").Equal(o.ShippingCost), "shipping: %s", o.ShippingCost)
	assert.True(t, dec("31.00").Equal(o.Total), "total: %s", o.Total)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "agent-7", o.CreatedBy)
	assert.Len(t, repo.created, 1)
}

func TestCreateOrder_NormalizesMinorUnitSubtotal(t *testing.T) {
	repo := newMockOrderRepo()
	svc := newTestService(repo, newMemorySequence())

	in := validInput()
	in.Subtotal = decPtr("2500") // cents

	o, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	// Identical to the plain-major-unit submission: 2500 is read as 25.00
	// before recomputation and the cross-check passes.
	assert.True(t, dec("25.00").Equal(o.Subtotal))
	assert.True(t, dec("31.00").Equal(o.Total))
}

func TestCreateOrder_RejectsMismatchedTotal(t *testing.T) {
	repo := newMockOrderRepo()
	seq := newMemorySequence()
	svc := newTestService(repo, seq)

	in := validInput()
	in.Total = decPtr("99.00")

	_, err := svc.CreateOrder(context.Background(), in)

	var mErr *MonetaryMismatchError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "total", mErr.Field)
	assert.True(t, dec("99.00").Equal(mErr.Provided))
	assert.True(t, dec("31.00").Equal(mErr.Computed))

	// Nothing allocated, nothing persisted.
	assert.Zero(t, seq.calls)
	assert.Empty(t, repo.created)
}

func TestCreateOrder_RejectsMismatchedLineTotal(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMemorySequence())

	in := validInput()
	in.Lines[0].TotalPrice = dec("26.00")

	_, err := svc.CreateOrder(context.Background(), in)

	var mErr *MonetaryMismatchError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "lines[0].total_price", mErr.Field)
	assert.True(t, dec("26.00").Equal(mErr.Provided))
	assert.True(t, dec("25.00").Equal(mErr.Computed))
}

func TestCreateOrder_RejectsMismatchedSubtotal(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMemorySequence())

	in := validInput()
	in.Subtotal = decPtr("30.00")

	_, err := svc.CreateOrder(context.Background(), in)

	var mErr *MonetaryMismatchError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "subtotal", mErr.Field)
}

func TestCreateOrder_ToleratesRoundingNoise(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMemorySequence())

	in := validInput()
	in.Total = decPtr("31.01") // within the 0.01 tolerance of 31.00

	_, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
}

func TestCreateOrder_UnknownZone(t *testing.T) {
	repo := newMockOrderRepo()
	seq := newMemorySequence()
	svc := newTestService(repo, seq)

	in := validInput()
	in.DeliveryZone = "Z9"

	_, err := svc.CreateOrder(context.Background(), in)

	var vErr *InputValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "delivery_zone", vErr.Field)
	assert.Zero(t, seq.calls)
	assert.Empty(t, repo.created)
}

func TestCreateOrder_StructuralRejections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CreateInput)
		wantField string
	}{
		{name: "empty lines", mutate: func(in *CreateInput) { in.Lines = nil }, wantField: "lines"},
		{name: "zero quantity", mutate: func(in *CreateInput) { in.Lines[0].Quantity = 0 }, wantField: "lines[0].quantity"},
		{name: "negative unit price", mutate: func(in *CreateInput) { in.Lines[0].UnitPrice = dec("-1") }, wantField: "lines[0].unit_price"},
		{name: "tax rate above 1", mutate: func(in *CreateInput) { in.TaxRate = dec("1.5") }, wantField: "tax_rate"},
		{name: "negative tax rate", mutate: func(in *CreateInput) { in.TaxRate = dec("-0.1") }, wantField: "tax_rate"},
		{name: "negative discount", mutate: func(in *CreateInput) { in.Discount = dec("-5") }, wantField: "discount"},
		{name: "bad discount type", mutate: func(in *CreateInput) { in.DiscountType = "loyalty" }, wantField: "discount_type"},
		{name: "bad national id", mutate: func(in *CreateInput) { in.Billing.NationalID = "123" }, wantField: "billing.national_id"},
		{name: "out of range latitude", mutate: func(in *CreateInput) {
			lat := 123.0
			in.Delivery.Latitude = &lat
		}, wantField: "delivery.latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMockOrderRepo(), newMemorySequence())
			in := validInput()
			tt.mutate(&in)

			_, err := svc.CreateOrder(context.Background(), in)

			var vErr *InputValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestCreateOrder_PercentageDiscount(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMemorySequence())

	in := validInput()
	in.Discount = dec("10")
	in.DiscountType = DiscountPercentage

	o, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	// 10% of 25.00 subtotal.
	assert.True(t, dec("2.50").Equal(o.Discount), "discount: %s", o.Discount)
	assert.True(t, dec("28.50").Equal(o.Total), "total: %s", o.Total)
}

func TestCreateOrder_ConcurrentCreationsGetDistinctNumbers(t *testing.T) {
	repo := newMockOrderRepo()
	svc := newTestService(repo, newMemorySequence())

	g, ctx := errgroup.WithContext(context.Background())
	for range 2 {
		g.Go(func() error {
			_, err := svc.CreateOrder(ctx, validInput())
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, repo.created, 2)
	_, ok1 := repo.created["ORDER-2025-01-001"]
	_, ok2 := repo.created["ORDER-2025-01-002"]
	assert.True(t, ok1, "ORDER-2025-01-001 missing")
	assert.True(t, ok2, "ORDER-2025-01-002 missing")
}

func TestCreateOrder_RetriesOnDuplicateNumber(t *testing.T) {
	repo := newMockOrderRepo()
	repo.dupLeft = 2
	seq := newMemorySequence()
	svc := newTestService(repo, seq)

	o, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	// Two collisions burn two sequence values; the third attempt lands.
	assert.Equal(t, "ORDER-2025-01-003", o.OrderNumber)
	assert.Equal(t, 3, seq.calls)
}

func TestCreateOrder_AllocationExhaustion(t *testing.T) {
	repo := newMockOrderRepo()
	repo.dupLeft = allocateAttempts + 1
	svc := newTestService(repo, newMemorySequence())

	_, err := svc.CreateOrder(context.Background(), validInput())

	var aErr *AllocationError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, allocateAttempts, aErr.Attempts)
	assert.True(t, aErr.Retryable())
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestCreateOrder_CounterStoreUnavailable(t *testing.T) {
	seq := newMemorySequence()
	seq.err = errors.New("counter store down")
	svc := newTestService(newMockOrderRepo(), seq)

	_, err := svc.CreateOrder(context.Background(), validInput())

	var aErr *AllocationError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, 1, aErr.Attempts)
}

func TestCreateOrder_PersistenceErrorIsNotAllocation(t *testing.T) {
	repo := newMockOrderRepo()
	repo.createErr = errors.New("db write failed")
	svc := newTestService(repo, newMemorySequence())

	_, err := svc.CreateOrder(context.Background(), validInput())
	require.Error(t, err)

	var aErr *AllocationError
	assert.False(t, errors.As(err, &aErr))
	assert.Contains(t, err.Error(), "persist order")
}

func TestGetOrder(t *testing.T) {
	repo := newMockOrderRepo()
	svc := newTestService(repo, newMemorySequence())

	created, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), created.OrderNumber)
	require.NoError(t, err)
	assert.True(t, created.Total.Equal(got.Total))

	_, err = svc.GetOrder(context.Background(), "ORDER-2000-01-001")
	require.Error(t, err)
}
