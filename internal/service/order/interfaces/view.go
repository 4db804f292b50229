package interfaces

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/service/order/domain"
)

// OrderView 是订单对外的 JSON 表示，不包含摘要和客户端信息。
type OrderView struct {
	ID              int64                  `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	Status          domain.Status          `json:"status"`
	PaymentStatus   domain.PaymentStatus   `json:"payment_status"`
	PaymentMethod   domain.PaymentMethod   `json:"payment_method"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	Tax             decimal.Decimal        `json:"tax"`
	ShippingCost    decimal.Decimal        `json:"shipping_cost"`
	Discount        decimal.Decimal        `json:"discount"`
	Total           decimal.Decimal        `json:"total"`
	CouponCode      string                 `json:"coupon_code,omitempty"`
	ShippingAddress domain.AddressSnapshot `json:"shipping_address"`
	BillingAddress  domain.AddressSnapshot `json:"billing_address"`
	Notes           string                 `json:"notes,omitempty"`
	TrackingNumber  string                 `json:"tracking_number,omitempty"`
	ShippedAt       *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
	Items           []ItemView             `json:"items"`
	CreatedAt       time.Time              `json:"created_at"`
}

type ItemView struct {
	ProductID   *int64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

func toView(o *domain.Order) OrderView {
	v := OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentMethod:   o.PaymentMethod,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		ShippingCost:    o.ShippingCost,
		Discount:        o.Discount,
		Total:           o.Total,
		CouponCode:      o.CouponCode,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Notes:           o.Notes,
		TrackingNumber:  o.TrackingNumber,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		Items:           make([]ItemView, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, ItemView{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		})
	}
	return v
}
