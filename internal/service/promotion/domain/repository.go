package domain

import "context"

// CouponRepository 定义了优惠券的持久化接口。
type CouponRepository interface {
	Create(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// FindByCodeForUpdate 对优惠券行加排他锁，必须在事务内调用。
	FindByCodeForUpdate(ctx context.Context, code string) (*Coupon, error)
	// CountUsages 统计 (coupon, user) 的使用记录行数。
	CountUsages(ctx context.Context, couponID, userID int64) (int, error)
	AppendUsage(ctx context.Context, u *CouponUsage) error
	// IncrementTimesUsed 仅在未达到全局上限时加一，否则返回 ErrGlobalLimitReached。
	IncrementTimesUsed(ctx context.Context, couponID int64) error
}
