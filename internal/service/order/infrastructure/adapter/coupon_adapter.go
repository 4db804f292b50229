package adapter

import (
	"context"
	"fmt"

	"storefront/internal/service/order/domain/port"
	promotion "storefront/internal/service/promotion/application"
)

// CouponAdapter 把促销服务的用例适配成 port.CouponEngine。
// 两个服务共享同一个数据库，ctx 中的事务句柄让优惠券读写和订单写入处于同一事务。
type CouponAdapter struct {
	svc *promotion.CouponService
}

var _ port.CouponEngine = (*CouponAdapter)(nil)

func NewCouponAdapter(svc *promotion.CouponService) *CouponAdapter {
	return &CouponAdapter{svc: svc}
}

func (a *CouponAdapter) Apply(ctx context.Context, code string, req port.CouponRequest) (*port.CouponQuote, error) {
	applied, err := a.svc.Evaluate(ctx, code, promotion.CouponContext{
		UserID:        req.UserID,
		Subtotal:      req.Subtotal,
		PaymentMethod: req.PaymentMethod,
		ItemCount:     req.ItemCount,
		Now:           req.Now,
	}, true)
	if err != nil {
		return nil, err
	}
	return port.NewCouponQuote(applied.Coupon.ID, applied.Coupon.Code, applied.Discount, applied), nil
}

func (a *CouponAdapter) Record(ctx context.Context, q *port.CouponQuote, userID, orderID int64) error {
	applied, ok := q.Handle().(*promotion.AppliedCoupon)
	if !ok {
		return fmt.Errorf("coupon quote %s was not issued by this adapter", q.Code)
	}
	return a.svc.RecordUsage(ctx, applied, userID, orderID)
}
