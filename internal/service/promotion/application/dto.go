package application

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/service/promotion/domain"
)

// CouponContext 是评估优惠券所需的订单上下文。
type CouponContext struct {
	UserID        int64
	Subtotal      decimal.Decimal
	PaymentMethod string
	ItemCount     int
	Now           time.Time
}

// AppliedCoupon 是通过校验的优惠券和计算出的折扣。
type AppliedCoupon struct {
	Coupon   *domain.Coupon
	Discount decimal.Decimal
}

// PreviewResponse 是结算页试用优惠券的结果，仅供展示。
type PreviewResponse struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message,omitempty"`
}
