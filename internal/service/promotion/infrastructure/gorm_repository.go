// Package infrastructure 是优惠券的 GORM 实现。
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/pkg/database"
	"storefront/internal/service/promotion/domain"
)

// GormCouponRepository 是 CouponRepository 的 GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository 创建一个新的 GORM 仓储实例
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

var _ domain.CouponRepository = (*GormCouponRepository)(nil)

func (r *GormCouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	m := FromDomainCoupon(c)
	if err := database.Conn(ctx, r.db).Create(m).Error; err != nil {
		return pkgerrors.Wrapf(err, "create coupon %s", c.Code)
	}
	c.ID = m.ID
	c.CreatedAt = m.CreatedAt
	return nil
}

func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return r.findByCode(database.Conn(ctx, r.db), code)
}

func (r *GormCouponRepository) FindByCodeForUpdate(ctx context.Context, code string) (*domain.Coupon, error) {
	return r.findByCode(database.ForUpdate(database.Conn(ctx, r.db)), code)
}

func (r *GormCouponRepository) findByCode(db *gorm.DB, code string) (*domain.Coupon, error) {
	var m CouponModel
	if err := db.Where("code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find coupon %s", code)
	}
	return ToDomainCoupon(&m), nil
}

// CountUsages 按行计数，每用户上限以使用记录为准。
func (r *GormCouponRepository) CountUsages(ctx context.Context, couponID, userID int64) (int, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&CouponUsageModel{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&n).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "count coupon usages")
	}
	return int(n), nil
}

func (r *GormCouponRepository) AppendUsage(ctx context.Context, u *domain.CouponUsage) error {
	m := CouponUsageModel{
		CouponID:       u.CouponID,
		UserID:         u.UserID,
		OrderID:        u.OrderID,
		DiscountAmount: u.DiscountAmount,
	}
	if err := database.Conn(ctx, r.db).Create(&m).Error; err != nil {
		return pkgerrors.Wrap(err, "append coupon usage")
	}
	u.ID, u.UsedAt = m.ID, m.UsedAt
	return nil
}

func (r *GormCouponRepository) IncrementTimesUsed(ctx context.Context, couponID int64) error {
	res := database.Conn(ctx, r.db).Model(&CouponModel{}).
		Where("id = ? AND (usage_limit IS NULL OR times_used < usage_limit)", couponID).
		Update("times_used", gorm.Expr("times_used + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "increment coupon usage")
	}
	if res.RowsAffected == 0 {
		return domain.ErrGlobalLimitReached
	}
	return nil
}
