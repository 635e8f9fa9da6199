// Package handler exposes the order API over HTTP: request decoding,
// response encoding, API key authentication, and the mapping from domain
// errors to status codes.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/retail-orders/internal/domain/order"
)

// OrderService is the slice of the order pipeline the HTTP layer depends on.
type OrderService interface {
	CreateOrder(ctx context.Context, in order.CreateInput) (*order.Order, error)
	GetOrder(ctx context.Context, number string) (*order.Order, error)
}

// Handler serves the order API endpoints.
type Handler struct {
	orders OrderService
}

// New creates a Handler backed by the given order service.
func New(orders OrderService) *Handler {
	return &Handler{orders: orders}
}

// Routes registers the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/{number}", h.getOrder)
}

// MethodNotAllowed is installed as the router-wide 405 handler.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
}

// NotFound is installed as the router-wide 404 handler.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found", nil)
}
