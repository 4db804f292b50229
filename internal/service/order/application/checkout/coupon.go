package checkout

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/errs"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	"storefront/internal/service/order/domain/port"
)

// CouponHandler 在事务内加锁重新校验优惠券。之前任何页面上的校验都只是参考。
type CouponHandler struct {
	NextHandler
}

func (h *CouponHandler) Handle(oc *OrderContext) error {
	if oc.Req.CouponCode == "" {
		return h.executeNext(oc)
	}
	ctx, span := oc.Tracer.Start(oc.Ctx, "checkout.Coupon")
	defer span.End()

	itemCount := 0
	for _, it := range oc.Items {
		itemCount += it.Quantity
	}
	quote, err := oc.Deps.Coupons.Apply(ctx, oc.Req.CouponCode, port.CouponRequest{
		UserID:        oc.Req.UserID,
		Subtotal:      oc.Subtotal,
		PaymentMethod: string(oc.Req.PaymentMethod),
		ItemCount:     itemCount,
		Now:           oc.Now,
	})
	if err != nil {
		// 只有优惠券状态类错误可以降级，其余错误照常失败
		if errs.KindOf(err) != errs.KindAvailability || oc.Deps.Policy == CouponReject {
			return fail(span, err, "coupon rejected")
		}
		reason := errCode(err)
		metrics.CouponsDegraded.WithLabelValues(reason).Inc()
		logger.Ctx(ctx).Warn().
			Str("coupon", oc.Req.CouponCode).
			Int64("user_id", oc.Req.UserID).
			Str("reason", reason).
			Msg("coupon no longer valid at commit, placing order without discount")
		span.AddEvent("coupon dropped", trace.WithAttributes(attribute.String("reason", reason)))
		oc.DroppedCoupon = err
		return h.executeNext(oc)
	}

	span.SetAttributes(attribute.String("coupon.discount", quote.Discount.StringFixed(2)))
	oc.Quote = quote
	return h.executeNext(oc)
}

func errCode(err error) string {
	var e *errs.Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return string(errs.KindOf(err))
}
