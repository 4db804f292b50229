package checkout

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"

	cart "storefront/internal/service/cart/domain"
	"storefront/internal/service/order/domain"
)

// LoadCartHandler 锁定用户购物车并重新读取所有行。
type LoadCartHandler struct {
	NextHandler
}

func (h *LoadCartHandler) Handle(oc *OrderContext) error {
	ctx, span := oc.Tracer.Start(oc.Ctx, "checkout.LoadCart")
	defer span.End()

	c, err := oc.Deps.Carts.FindByOwner(ctx, cart.UserOwner(oc.Req.UserID))
	if errors.Is(err, cart.ErrCartNotFound) {
		return fail(span, domain.ErrEmptyCart, "no cart")
	}
	if err != nil {
		return fail(span, err, "find cart failed")
	}
	// 加锁后再读一次，防止和同一用户的并发加购交错
	if c, err = oc.Deps.Carts.LockByID(ctx, c.ID); err != nil {
		return fail(span, err, "lock cart failed")
	}
	if c.IsEmpty() {
		return fail(span, domain.ErrEmptyCart, "empty cart")
	}
	span.SetAttributes(attribute.Int64("cart.id", c.ID), attribute.Int("cart.lines", len(c.Lines)))
	oc.Cart = c
	return h.executeNext(oc)
}

// ClearCartHandler 在订单写入后清空购物车。
type ClearCartHandler struct {
	NextHandler
}

func (h *ClearCartHandler) Handle(oc *OrderContext) error {
	ctx, span := oc.Tracer.Start(oc.Ctx, "checkout.ClearCart")
	defer span.End()

	if err := oc.Deps.Carts.ClearLines(ctx, oc.Cart.ID); err != nil {
		return fail(span, err, "clear cart failed")
	}
	return h.executeNext(oc)
}
