package checkout

import (
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/service/order/domain"
)

// TotalsHandler 计算税费、运费和总价。
type TotalsHandler struct {
	NextHandler
}

func (h *TotalsHandler) Handle(oc *OrderContext) error {
	_, span := oc.Tracer.Start(oc.Ctx, "checkout.Totals")
	defer span.End()

	discount := decimal.Zero
	if oc.Quote != nil {
		discount = oc.Quote.Discount
	}
	t, err := domain.ComputeTotals(oc.Subtotal, discount, oc.Deps.Pricing)
	if err != nil {
		return fail(span, err, "totals invariant broken")
	}
	oc.Totals = t
	span.SetAttributes(attribute.String("order.total", t.Total.StringFixed(2)))
	return h.executeNext(oc)
}

// PersistOrderHandler 写入订单和订单行，盖上完整性摘要，并记录优惠券使用。
type PersistOrderHandler struct {
	NextHandler
}

func (h *PersistOrderHandler) Handle(oc *OrderContext) error {
	ctx, span := oc.Tracer.Start(oc.Ctx, "checkout.PersistOrder")
	defer span.End()

	req := oc.Req
	o := &domain.Order{
		OrderNumber:     domain.NewOrderNumber(oc.Now),
		UserID:          req.UserID,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		Totals:          oc.Totals,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           domain.TruncateNotes(req.Notes),
		IPAddress:       req.IPAddress,
		UserAgent:       domain.TruncateUserAgent(req.UserAgent),
		Items:           oc.Items,
		CreatedAt:       oc.Now,
		UpdatedAt:       oc.Now,
	}
	if oc.Quote != nil {
		o.CouponCode = oc.Quote.Code
	}
	o.Seal(oc.Deps.Secret.IntegritySecret())

	if err := oc.Deps.Orders.Create(ctx, o); err != nil {
		return fail(span, err, "create order failed")
	}
	if oc.Quote != nil {
		if err := oc.Deps.Coupons.Record(ctx, oc.Quote, req.UserID, o.ID); err != nil {
			return fail(span, err, "record coupon usage failed")
		}
	}

	span.SetAttributes(attribute.String("order.number", o.OrderNumber), attribute.Int64("order.id", o.ID))
	oc.Order = o
	return h.executeNext(oc)
}
