package checkout

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	cart "storefront/internal/service/cart/domain"
	catalog "storefront/internal/service/catalog/domain"
	"storefront/internal/service/order/domain"
)

// LockProductsHandler 按商品 ID 升序加行锁，校验库存，并用实时价格重新定价。
// 购物车行里的 price_at_addition 只用于展示，这里不会读取它。
type LockProductsHandler struct {
	NextHandler
}

func (h *LockProductsHandler) Handle(oc *OrderContext) error {
	ctx, span := oc.Tracer.Start(oc.Ctx, "checkout.LockProducts")
	defer span.End()

	lines := append([]cart.Line(nil), oc.Cart.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	oc.Products = make(map[int64]*catalog.Product, len(lines))
	oc.Items = make([]domain.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, l := range lines {
		p, err := oc.Deps.Products.GetForUpdate(ctx, l.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			return fail(span, cart.ErrProductUnavailable.Withf("a product in your cart is no longer available"), "product gone")
		}
		if err != nil {
			return fail(span, err, "lock product failed")
		}
		if !p.IsActive {
			return fail(span, cart.ErrProductUnavailable.Withf("%s is no longer available", p.Name), "product inactive")
		}
		if l.Quantity > p.Stock {
			return fail(span, catalog.InsufficientStock(p, l.Quantity), "insufficient stock")
		}
		oc.Products[p.ID] = p
		item := domain.NewItem(p.ID, p.Name, p.FinalPrice(), l.Quantity)
		oc.Items = append(oc.Items, item)
		subtotal = subtotal.Add(item.LineTotal)
	}
	oc.Subtotal = subtotal

	span.SetAttributes(attribute.String("order.subtotal", subtotal.StringFixed(2)))
	return h.executeNext(oc)
}

// ReserveStockHandler 扣减库存。商品行已经被锁住，条件更新只是最后一道防线。
type ReserveStockHandler struct {
	NextHandler
}

func (h *ReserveStockHandler) Handle(oc *OrderContext) error {
	ctx, span := oc.Tracer.Start(oc.Ctx, "checkout.ReserveStock")
	defer span.End()

	for _, it := range oc.Items {
		if err := oc.Deps.Products.DecrementStock(ctx, *it.ProductID, it.Quantity); err != nil {
			return fail(span, err, "decrement stock failed")
		}
	}
	span.AddEvent("stock reserved")
	return h.executeNext(oc)
}
