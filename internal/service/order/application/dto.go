package application

import (
	"storefront/internal/service/order/domain"
)

// PlaceOrderRequest 是下单用例的输入。UserID 为 0 表示匿名用户。
type PlaceOrderRequest struct {
	UserID            int64
	ShippingAddressID int64
	BillingAddressID  int64
	PaymentMethod     string
	CouponCode        string
	Notes             string
	IPAddress         string
	UserAgent         string
}

// PlaceOrderResponse 是下单用例的输出。
type PlaceOrderResponse struct {
	Order *domain.Order
	// CouponMessage 非空表示优惠券在提交时已失效，订单按无折扣价格成交。
	CouponMessage string
}

// AdvanceStatusRequest 是履约状态流转的输入。
type AdvanceStatusRequest struct {
	OrderID        int64
	To             domain.Status
	TrackingNumber string
}
