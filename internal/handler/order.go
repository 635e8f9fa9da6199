package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/retail-orders/internal/domain/order"
)

// maxBodyBytes caps order submissions; a legitimate order is far smaller.
const maxBodyBytes = 1 << 20

// createOrder handles POST /api/orders.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", map[string]string{
			"body": err.Error(),
		})
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req.toInput(ActorFromContext(r.Context())))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	w.Header().Set("Location", "/api/orders/"+o.OrderNumber)
	writeJSON(w, http.StatusCreated, &e)
}

// getOrder handles GET /api/orders/{number}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if _, _, _, err := order.ParseNumber(number); err != nil {
		writeError(w, http.StatusBadRequest, "malformed order number", map[string]string{
			"order_number": err.Error(),
		})
		return
	}

	o, err := h.orders.GetOrder(r.Context(), number)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found", nil)
			return
		}
		h.writeOrderError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

// retryAfterSeconds is the hint sent with 503 responses when number
// allocation is exhausted.
const retryAfterSeconds = 2

// writeOrderError maps pipeline errors to HTTP responses. Validation errors
// are 400, monetary mismatches 422, allocation exhaustion 503 with a
// Retry-After hint. Anything else is an internal error and gets logged.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.InputValidationError
		mismatchErr   *order.MonetaryMismatchError
		allocErr      *order.AllocationError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation failed", map[string]string{
			validationErr.Field: validationErr.Reason,
		})
	case errors.As(err, &mismatchErr):
		writeError(w, http.StatusUnprocessableEntity, "monetary cross-check failed", map[string]string{
			mismatchErr.Field: mismatchErr.Error(),
		})
	case errors.As(err, &allocErr):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(w, http.StatusServiceUnavailable, "order number allocation unavailable, retry the request", nil)
	default:
		zctx.From(r.Context()).Error("order operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
