package handler

import (
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/retail-orders/internal/domain/order"
)

// writeJSON writes an encoded body with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the uniform error body: code, message, and optional
// per-field details.
func writeError(w http.ResponseWriter, status int, message string, details map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	if len(details) > 0 {
		e.FieldStart("details")
		e.ObjStart()
		for _, k := range slices.Sorted(maps.Keys(details)) {
			e.FieldStart(k)
			e.Str(details[k])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// money emits a decimal as an exact JSON number with two fraction digits.
func money(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()

	e.FieldStart("order_number")
	e.Str(o.OrderNumber)
	e.FieldStart("customer_ref")
	e.Str(o.CustomerRef)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("payment_status")
	e.Str(string(o.PaymentStatus))

	e.FieldStart("lines")
	e.ArrStart()
	for i := range o.Lines {
		encodeLine(e, &o.Lines[i])
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	money(e, o.Subtotal)
	e.FieldStart("tax")
	money(e, o.Tax)
	e.FieldStart("tax_rate")
	e.Num(jx.Num(o.TaxRate.String()))
	e.FieldStart("discount")
	money(e, o.Discount)
	e.FieldStart("discount_type")
	e.Str(string(o.DiscountType))
	e.FieldStart("shipping_cost")
	money(e, o.ShippingCost)
	e.FieldStart("total")
	money(e, o.Total)
	e.FieldStart("delivery_zone")
	e.Str(string(o.DeliveryZone))

	e.FieldStart("billing")
	encodeBilling(e, o.Billing)
	e.FieldStart("delivery_address")
	encodeDeliveryAddress(e, o.Delivery)

	if o.PaymentMethod != "" {
		e.FieldStart("payment_method")
		e.Str(o.PaymentMethod)
	}
	if o.PaymentRef != "" {
		e.FieldStart("payment_ref")
		e.Str(o.PaymentRef)
	}
	e.FieldStart("created_by")
	e.Str(o.CreatedBy)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.Format(time.RFC3339))

	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l *order.Line) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Str(l.ProductID)
	if l.ProductName != "" {
		e.FieldStart("product_name")
		e.Str(l.ProductName)
	}
	if l.ProductSKU != "" {
		e.FieldStart("product_sku")
		e.Str(l.ProductSKU)
	}
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unit_price")
	money(e, l.UnitPrice)
	e.FieldStart("total_price")
	money(e, l.TotalPrice)
	e.ObjEnd()
}

func encodeBilling(e *jx.Encoder, b order.BillingInfo) {
	e.ObjStart()
	e.FieldStart("national_id")
	e.Str(b.NationalID)
	e.FieldStart("full_name")
	e.Str(b.FullName)
	e.FieldStart("phone")
	e.Str(b.Phone)
	if b.Email != "" {
		e.FieldStart("email")
		e.Str(b.Email)
	}
	if b.Address != "" {
		e.FieldStart("address")
		e.Str(b.Address)
	}
	e.ObjEnd()
}

func encodeDeliveryAddress(e *jx.Encoder, a order.DeliveryAddress) {
	e.ObjStart()
	e.FieldStart("street")
	e.Str(a.Street)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("state")
	e.Str(a.State)
	e.FieldStart("zip")
	e.Str(a.Zip)
	e.FieldStart("country")
	e.Str(a.Country)
	e.FieldStart("recipient_name")
	e.Str(a.RecipientName)
	e.FieldStart("recipient_phone")
	e.Str(a.RecipientPhone)
	if a.Latitude != nil {
		e.FieldStart("latitude")
		e.Float64(*a.Latitude)
	}
	if a.Longitude != nil {
		e.FieldStart("longitude")
		e.Float64(*a.Longitude)
	}
	if a.MapLink != "" {
		e.FieldStart("map_link")
		e.Str(a.MapLink)
	}
	e.ObjEnd()
}
