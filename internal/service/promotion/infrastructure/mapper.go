package infrastructure

import "storefront/internal/service/promotion/domain"

// ToDomainCoupon 将数据库模型转换为领域模型
func ToDomainCoupon(m *CouponModel) *domain.Coupon {
	if m == nil {
		return nil
	}
	return &domain.Coupon{
		ID:                m.ID,
		Code:              m.Code,
		Description:       m.Description,
		DiscountType:      domain.DiscountType(m.DiscountType),
		DiscountValue:     m.DiscountValue,
		MinimumOrder:      m.MinimumOrder,
		MaximumDiscount:   m.MaximumDiscount,
		UsageLimit:        m.UsageLimit,
		UsageLimitPerUser: m.UsageLimitPerUser,
		TimesUsed:         m.TimesUsed,
		ValidFrom:         m.ValidFrom,
		ValidUntil:        m.ValidUntil,
		IsActive:          m.IsActive,
		Condition:         m.Condition,
		CreatedAt:         m.CreatedAt,
	}
}

// FromDomainCoupon 将领域模型转换为数据库模型 (用于插入)
func FromDomainCoupon(c *domain.Coupon) *CouponModel {
	return &CouponModel{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      string(c.DiscountType),
		DiscountValue:     c.DiscountValue,
		MinimumOrder:      c.MinimumOrder,
		MaximumDiscount:   c.MaximumDiscount,
		UsageLimit:        c.UsageLimit,
		UsageLimitPerUser: c.UsageLimitPerUser,
		TimesUsed:         c.TimesUsed,
		ValidFrom:         c.ValidFrom,
		ValidUntil:        c.ValidUntil,
		IsActive:          c.IsActive,
		Condition:         c.Condition,
	}
}
