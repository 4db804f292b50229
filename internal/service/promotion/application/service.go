// Package application 编排优惠券用例。
package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/errs"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/promotion/domain"
)

// CouponService 定义了优惠券提供的所有业务用例
type CouponService struct {
	coupons domain.CouponRepository
	rules   domain.RuleEngine
	tracer  trace.Tracer
	now     func() time.Time
}

// NewCouponService 创建优惠券服务，now 为 nil 时使用 time.Now。
func NewCouponService(repo domain.CouponRepository, rules domain.RuleEngine, tracer trace.Tracer, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{coupons: repo, rules: rules, tracer: tracer, now: now}
}

// Create 校验并保存一张优惠券，附加条件必须能编译。
func (s *CouponService) Create(ctx context.Context, c *domain.Coupon) error {
	ctx, span := s.tracer.Start(ctx, "coupon.Create")
	defer span.End()

	c.Code = domain.NormalizeCode(c.Code)
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Condition != "" {
		if err := s.rules.Check(c.Condition); err != nil {
			return domain.ErrInvalidCoupon.Withf("invalid condition").WithCause(err)
		}
	}
	if err := s.coupons.Create(ctx, c); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Evaluate 按顺序执行全部检查并计算折扣。
// lock 为 true 时对优惠券行加锁，调用方必须已经处于事务中（下单提交路径）。
func (s *CouponService) Evaluate(ctx context.Context, code string, cc CouponContext, lock bool) (*AppliedCoupon, error) {
	ctx, span := s.tracer.Start(ctx, "coupon.Evaluate")
	defer span.End()

	code = domain.NormalizeCode(code)
	span.SetAttributes(attribute.String("coupon.code", code), attribute.Bool("coupon.locked", lock))
	if code == "" {
		return nil, domain.ErrCouponNotFound
	}

	var (
		coupon *domain.Coupon
		err    error
	)
	if lock {
		coupon, err = s.coupons.FindByCodeForUpdate(ctx, code)
	} else {
		coupon, err = s.coupons.FindByCode(ctx, code)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	usages := 0
	if cc.UserID > 0 && coupon.UsageLimitPerUser > 0 {
		if usages, err = s.coupons.CountUsages(ctx, coupon.ID, cc.UserID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	discount, err := coupon.Evaluate(cc.Now, cc.Subtotal, usages)
	if err != nil {
		span.AddEvent("coupon rejected", trace.WithAttributes(attribute.String("reason", errCode(err))))
		return nil, err
	}

	if coupon.Condition != "" {
		ok, err := s.rules.Evaluate(coupon.Condition, domain.Fact{
			Subtotal:      cc.Subtotal.InexactFloat64(),
			PaymentMethod: cc.PaymentMethod,
			ItemCount:     cc.ItemCount,
			UserID:        strconv.FormatInt(cc.UserID, 10),
		})
		if err != nil {
			// 条件本身有问题时按不满足处理，同时提醒运营修正
			logger.Ctx(ctx).Error().Err(err).Str("coupon", code).Msg("coupon condition failed to evaluate")
			span.RecordError(err)
			return nil, domain.ErrConditionNotMet.WithCause(err)
		}
		if !ok {
			return nil, domain.ErrConditionNotMet
		}
	}

	span.SetAttributes(attribute.String("coupon.discount", discount.StringFixed(2)))
	return &AppliedCoupon{Coupon: coupon, Discount: discount}, nil
}

// Preview 是结算页的试算，只读且不加锁，结果不作为最终依据。
func (s *CouponService) Preview(ctx context.Context, code string, cc CouponContext) (*PreviewResponse, error) {
	if cc.Now.IsZero() {
		cc.Now = s.now()
	}
	resp := &PreviewResponse{Code: domain.NormalizeCode(code)}
	applied, err := s.Evaluate(ctx, code, cc, false)
	if err != nil {
		if errs.KindOf(err) != errs.KindAvailability {
			return nil, err
		}
		resp.Message = errs.PublicMessage(err)
		return resp, nil
	}
	resp.Valid = true
	resp.Discount = applied.Discount
	return resp, nil
}

// RecordUsage 追加使用记录并增加全局次数，必须与订单写入处于同一事务。
func (s *CouponService) RecordUsage(ctx context.Context, applied *AppliedCoupon, userID, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "coupon.RecordUsage")
	defer span.End()

	if err := s.coupons.IncrementTimesUsed(ctx, applied.Coupon.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "increment times_used failed")
		return err
	}
	usage := &domain.CouponUsage{
		CouponID:       applied.Coupon.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: applied.Discount,
	}
	if err := s.coupons.AppendUsage(ctx, usage); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append coupon usage failed")
		return err
	}
	return nil
}

func errCode(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return string(errs.KindOf(err))
}
