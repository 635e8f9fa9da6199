package handler

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/retail-orders/internal/domain/order"
)

// createOrderRequest is the wire shape of an order submission. Monetary
// fields accept JSON numbers or strings; optional subtotal/tax/total are
// cross-check figures, not inputs to pricing.
type createOrderRequest struct {
	CustomerRef     string                 `json:"customer_ref"`
	Lines           []lineRequest          `json:"lines"`
	TaxRate         decimal.Decimal        `json:"tax_rate"`
	Discount        decimal.Decimal        `json:"discount"`
	DiscountType    string                 `json:"discount_type"`
	DeliveryZone    string                 `json:"delivery_zone"`
	Billing         billingRequest         `json:"billing"`
	DeliveryAddress deliveryAddressRequest `json:"delivery_address"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentRef      string                 `json:"payment_ref"`

	Subtotal *decimal.Decimal `json:"subtotal"`
	Tax      *decimal.Decimal `json:"tax"`
	Total    *decimal.Decimal `json:"total"`
}

type lineRequest struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type billingRequest struct {
	NationalID string `json:"national_id"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address"`
}

type deliveryAddressRequest struct {
	Street         string   `json:"street"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	Zip            string   `json:"zip"`
	Country        string   `json:"country"`
	RecipientName  string   `json:"recipient_name"`
	RecipientPhone string   `json:"recipient_phone"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	MapLink        string   `json:"map_link"`
}

// toInput converts the wire request to the domain pipeline input. A missing
// discount_type defaults to fixed so a bare numeric discount keeps working.
func (req *createOrderRequest) toInput(createdBy string) order.CreateInput {
	discountType := order.DiscountType(req.DiscountType)
	if req.DiscountType == "" {
		discountType = order.DiscountFixed
	}

	lines := make([]order.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.LineInput{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			ProductSKU:  l.ProductSKU,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.TotalPrice,
		}
	}

	return order.CreateInput{
		CustomerRef:  req.CustomerRef,
		Lines:        lines,
		TaxRate:      req.TaxRate,
		Discount:     req.Discount,
		DiscountType: discountType,
		DeliveryZone: order.Zone(req.DeliveryZone),
		Billing: order.BillingInfo{
			NationalID: req.Billing.NationalID,
			FullName:   req.Billing.FullName,
			Phone:      req.Billing.Phone,
			Email:      req.Billing.Email,
			Address:    req.Billing.Address,
		},
		Delivery: order.DeliveryAddress{
			Street:         req.DeliveryAddress.Street,
			City:           req.DeliveryAddress.City,
			State:          req.DeliveryAddress.State,
			Zip:            req.DeliveryAddress.Zip,
			Country:        req.DeliveryAddress.Country,
			RecipientName:  req.DeliveryAddress.RecipientName,
			RecipientPhone: req.DeliveryAddress.RecipientPhone,
			Latitude:       req.DeliveryAddress.Latitude,
			Longitude:      req.DeliveryAddress.Longitude,
			MapLink:        req.DeliveryAddress.MapLink,
		},
		PaymentMethod: req.PaymentMethod,
		PaymentRef:    req.PaymentRef,
		CreatedBy:     createdBy,
		Subtotal:      req.Subtotal,
		Tax:           req.Tax,
		Total:         req.Total,
	}
}
