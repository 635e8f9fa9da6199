package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/retail-orders/internal/domain/order"
)

type mockOrderService struct {
	createFn func(ctx context.Context, in order.CreateInput) (*order.Order, error)
	getFn    func(ctx context.Context, number string) (*order.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, in order.CreateInput) (*order.Order, error) {
	return m.createFn(ctx, in)
}

func (m *mockOrderService) GetOrder(ctx context.Context, number string) (*order.Order, error) {
	return m.getFn(ctx, number)
}

func newTestRouter(svc OrderService) http.Handler {
	r := chi.NewRouter()
	New(svc).Routes(r)
	return r
}

func sampleOrder() *order.Order {
	created := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	return &order.Order{
		OrderNumber: "ORDER-2025-01-001",
		CustomerRef: "cust-42",
		Lines: []order.Line{{
			ProductID:  "p1",
			Quantity:   2,
			UnitPrice:  decimal.RequireFromString("12.50"),
			TotalPrice: decimal.RequireFromString("25.00"),
		}},
		Subtotal:      decimal.RequireFromString("25.00"),
		Tax:           decimal.RequireFromString("3.00"),
		TaxRate:       decimal.RequireFromString("0.12"),
		Discount:      decimal.Zero,
		DiscountType:  order.DiscountFixed,
		ShippingCost:  decimal.RequireFromString("3.00"),
		Total:         decimal.RequireFromString("31.00"),
		DeliveryZone:  order.ZoneZ1,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentPending,
		Billing: order.BillingInfo{
			NationalID: "1234567890",
			FullName:   "Jane Customer",
			Phone:      "09123456789",
		},
		Delivery: order.DeliveryAddress{
			Street:         "1 Main St",
			City:           "Springfield",
			State:          "IL",
			Zip:            "62701",
			Country:        "US",
			RecipientName:  "Jane Customer",
			RecipientPhone: "02122334455",
		},
		CreatedBy: "webshop",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

const createBody = `{
	"customer_ref": "cust-42",
	"lines": [{"product_id": "p1", "quantity": 2, "unit_price": 12.50, "total_price": 25.00}],
	"tax_rate": 0.12,
	"delivery_zone": "Z1",
	"billing": {"national_id": "1234567890", "full_name": "Jane Customer", "phone": "09123456789"},
	"delivery_address": {
		"street": "1 Main St", "city": "Springfield", "state": "IL", "zip": "62701",
		"country": "US", "recipient_name": "Jane Customer", "recipient_phone": "02122334455"
	}
}`

func TestCreateOrder(t *testing.T) {
	var gotInput order.CreateInput
	svc := &mockOrderService{
		createFn: func(_ context.Context, in order.CreateInput) (*order.Order, error) {
			gotInput = in
			return sampleOrder(), nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/orders/ORDER-2025-01-001", rec.Header().Get("Location"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `"order_number":"ORDER-2025-01-001"`)
	assert.Contains(t, body, `"subtotal":25.00`)
	assert.Contains(t, body, `"total":31.00`)
	assert.Contains(t, body, `"status":"pending"`)

	// Missing discount_type defaults to fixed.
	assert.Equal(t, order.DiscountFixed, gotInput.DiscountType)
	assert.Equal(t, order.ZoneZ1, gotInput.DeliveryZone)
	require.Len(t, gotInput.Lines, 1)
	assert.True(t, gotInput.Lines[0].UnitPrice.Equal(decimal.RequireFromString("12.5")))
}

func TestCreateOrderMalformedBody(t *testing.T) {
	router := newTestRouter(&mockOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed request body")
}

func TestCreateOrderErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation error",
			err:        &order.InputValidationError{Field: "billing.national_id", Reason: "must be exactly 10 digits"},
			wantStatus: http.StatusBadRequest,
			wantBody:   "must be exactly 10 digits",
		},
		{
			name: "monetary mismatch",
			err: &order.MonetaryMismatchError{
				Field:    "total",
				Provided: decimal.RequireFromString("99.00"),
				Computed: decimal.RequireFromString("31.00"),
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "provided 99.00, computed 31.00",
		},
		{
			name:       "allocation exhausted",
			err:        &order.AllocationError{Attempts: 5, Err: order.ErrDuplicateNumber},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "allocation unavailable",
		},
		{
			name:       "unexpected error",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockOrderService{
				createFn: func(context.Context, order.CreateInput) (*order.Order, error) {
					return nil, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(createBody))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	router := newTestRouter(&mockOrderService{
		getFn: func(_ context.Context, number string) (*order.Order, error) {
			require.Equal(t, "ORDER-2025-01-001", number)
			return sampleOrder(), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ORDER-2025-01-001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_number":"ORDER-2025-01-001"`)
	assert.Contains(t, rec.Body.String(), `"shipping_cost":3.00`)
}

func TestGetOrderMalformedNumber(t *testing.T) {
	router := newTestRouter(&mockOrderService{
		getFn: func(context.Context, string) (*order.Order, error) {
			t.Fatal("service must not be called for malformed numbers")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ORDER-25-1-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed order number")
}

func TestGetOrderNotFound(t *testing.T) {
	router := newTestRouter(&mockOrderService{
		getFn: func(context.Context, string) (*order.Order, error) {
			return nil, order.ErrNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ORDER-2025-01-999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "order not found")
}
