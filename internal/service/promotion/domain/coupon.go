// Package domain 定义优惠券及其校验规则。
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/pkg/errs"
)

// DiscountType 定义了优惠的计算方式。
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage" // 按比例，可设置最高优惠
	DiscountFixed      DiscountType = "fixed"      // 固定金额
)

var (
	ErrCouponNotFound      = errs.New(errs.KindAvailability, "coupon_not_found", "invalid coupon code")
	ErrCouponInactive      = errs.New(errs.KindAvailability, "coupon_inactive", "this coupon is no longer active")
	ErrCouponOutOfWindow   = errs.New(errs.KindAvailability, "coupon_out_of_window", "this coupon is not valid at this time")
	ErrGlobalLimitReached  = errs.New(errs.KindAvailability, "coupon_usage_limit_reached", "this coupon has reached its usage limit")
	ErrPerUserLimitReached = errs.New(errs.KindAvailability, "coupon_per_user_limit_reached", "you have already used this coupon")
	ErrBelowMinimum        = errs.New(errs.KindAvailability, "coupon_below_minimum", "order total is below the coupon minimum")
	ErrConditionNotMet     = errs.New(errs.KindAvailability, "coupon_condition_not_met", "this coupon does not apply to this order")
	ErrInvalidCoupon       = errs.New(errs.KindValidation, "invalid_coupon", "invalid coupon definition")
)

// Coupon 是一个折扣码。TimesUsed 只增不减（人工修正除外）。
type Coupon struct {
	ID                int64
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MinimumOrder      decimal.Decimal
	MaximumDiscount   decimal.NullDecimal
	UsageLimit        *int // nil 表示不限次数
	UsageLimitPerUser int  // <= 0 表示不限
	TimesUsed         int
	ValidFrom         time.Time
	ValidUntil        time.Time
	IsActive          bool
	// Condition 是可选的 CEL 表达式，见 RuleEngine
	Condition string
	CreatedAt time.Time
}

// CouponUsage 是只追加的使用记录，一张订单最多一条。
type CouponUsage struct {
	ID             int64
	CouponID       int64
	UserID         int64
	OrderID        int64
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}

// NormalizeCode 去掉空白并转为大写。
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate 检查优惠券定义本身。
func (c *Coupon) Validate() error {
	switch {
	case c.Code == "" || c.Code != NormalizeCode(c.Code):
		return ErrInvalidCoupon.Withf("coupon code must be non-empty upper case")
	case c.DiscountType != DiscountPercentage && c.DiscountType != DiscountFixed:
		return ErrInvalidCoupon.Withf("unknown discount type %q", c.DiscountType)
	case !c.DiscountValue.IsPositive():
		return ErrInvalidCoupon.Withf("discount value must be positive")
	case c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(decimal.NewFromInt(100)):
		return ErrInvalidCoupon.Withf("percentage must not exceed 100")
	case c.MinimumOrder.IsNegative():
		return ErrInvalidCoupon.Withf("minimum order must not be negative")
	case c.MaximumDiscount.Valid && c.MaximumDiscount.Decimal.IsNegative():
		return ErrInvalidCoupon.Withf("maximum discount must not be negative")
	case c.UsageLimit != nil && *c.UsageLimit < 0:
		return ErrInvalidCoupon.Withf("usage limit must not be negative")
	case !c.ValidUntil.After(c.ValidFrom):
		return ErrInvalidCoupon.Withf("valid_until must be after valid_from")
	}
	return nil
}

// CheckEligibility 按固定顺序执行前五项检查，返回第一个失败的原因。
// userUsages 是该用户已有的 CouponUsage 行数。
func (c *Coupon) CheckEligibility(now time.Time, subtotal decimal.Decimal, userUsages int) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return ErrCouponOutOfWindow
	}
	if c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit {
		return ErrGlobalLimitReached
	}
	if c.UsageLimitPerUser > 0 && userUsages >= c.UsageLimitPerUser {
		return ErrPerUserLimitReached
	}
	if subtotal.LessThan(c.MinimumOrder) {
		return ErrBelowMinimum.Withf("minimum order amount is %s", c.MinimumOrder.StringFixed(2))
	}
	return nil
}

// Discount 计算折扣金额。百分比折扣四舍五入到分并受 MaximumDiscount 限制；
// 最终结果不会超过 subtotal，因此总价不会为负。
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if c.MaximumDiscount.Valid && d.GreaterThan(c.MaximumDiscount.Decimal) {
			d = c.MaximumDiscount.Decimal
		}
	default:
		d = c.DiscountValue
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d
}

// Evaluate 执行完整的校验并返回折扣金额。
func (c *Coupon) Evaluate(now time.Time, subtotal decimal.Decimal, userUsages int) (decimal.Decimal, error) {
	if err := c.CheckEligibility(now, subtotal, userUsages); err != nil {
		return decimal.Zero, err
	}
	return c.Discount(subtotal), nil
}
