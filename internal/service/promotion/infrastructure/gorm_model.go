package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponModel 对应 coupons 表。
type CouponModel struct {
	ID                int64               `gorm:"primaryKey"`
	Code              string              `gorm:"type:varchar(50);uniqueIndex;not null"`
	Description       string              `gorm:"type:varchar(255)"`
	DiscountType      string              `gorm:"type:varchar(20);not null"`
	DiscountValue     decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	MinimumOrder      decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	MaximumDiscount   decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	UsageLimit        *int
	UsageLimitPerUser int  `gorm:"not null"`
	TimesUsed         int  `gorm:"not null;check:chk_coupon_times_used,usage_limit IS NULL OR times_used <= usage_limit"`
	IsActive          bool `gorm:"not null"`
	ValidFrom         time.Time
	ValidUntil        time.Time
	Condition         string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName 指定 GORM 应该使用的表名
func (CouponModel) TableName() string {
	return "coupons"
}

// CouponUsageModel 对应 coupon_usages 表，只插入不更新。
type CouponUsageModel struct {
	ID             int64           `gorm:"primaryKey"`
	CouponID       int64           `gorm:"not null;index:idx_coupon_user;uniqueIndex:uk_coupon_order"`
	UserID         int64           `gorm:"not null;index:idx_coupon_user"`
	OrderID        int64           `gorm:"not null;uniqueIndex:uk_coupon_order"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	UsedAt         time.Time       `gorm:"autoCreateTime"`
}

func (CouponUsageModel) TableName() string {
	return "coupon_usages"
}
