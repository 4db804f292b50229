// Package checkout 是下单事务内的处理链。每一步只在前一步成功后执行，
// 任意一步返回错误都会让外层事务整体回滚，所以这里不需要补偿动作。
package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	cart "storefront/internal/service/cart/domain"
	catalog "storefront/internal/service/catalog/domain"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
)

// CouponPolicy 决定提交时优惠券失效的处理方式。
type CouponPolicy string

const (
	// CouponDegrade 去掉折扣继续下单。
	CouponDegrade CouponPolicy = "degrade"
	// CouponReject 整单失败并返回优惠券错误。
	CouponReject CouponPolicy = "reject"
)

// Request 是已经过入口校验的下单请求。
type Request struct {
	UserID          int64
	PaymentMethod   domain.PaymentMethod
	CouponCode      string
	ShippingAddress domain.AddressSnapshot
	BillingAddress  domain.AddressSnapshot
	Notes           string
	IPAddress       string
	UserAgent       string
}

// Deps 是处理链用到的仓储和端口。
type Deps struct {
	Carts    cart.CartRepository
	Products catalog.ProductRepository
	Orders   domain.OrderRepository
	Coupons  port.CouponEngine
	Secret   port.SecretProvider
	Pricing  domain.PricingPolicy
	Policy   CouponPolicy
}

// OrderContext 在处理链中传递请求、依赖和逐步累积的结果。
type OrderContext struct {
	Ctx    context.Context
	Tracer trace.Tracer
	Now    time.Time
	Req    *Request
	Deps   *Deps

	Cart     *cart.Cart
	Products map[int64]*catalog.Product
	Items    []domain.OrderItem
	Subtotal decimal.Decimal
	Quote    *port.CouponQuote
	// DroppedCoupon 是 degrade 策略下被丢弃的优惠券原因，空表示没有丢弃。
	DroppedCoupon error
	Totals        domain.Totals
	Order         *domain.Order
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(oc *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(oc *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(oc)
	}
	return nil
}

// NewChain 按固定顺序组装处理链:
// 购物车 -> 商品加锁 -> 优惠券 -> 金额 -> 扣库存 -> 写订单 -> 清空购物车。
// 加锁顺序固定为商品 (ID 升序) 再优惠券。
func NewChain() Handler {
	head := &LoadCartHandler{}
	head.SetNext(&LockProductsHandler{}).
		SetNext(&CouponHandler{}).
		SetNext(&TotalsHandler{}).
		SetNext(&ReserveStockHandler{}).
		SetNext(&PersistOrderHandler{}).
		SetNext(&ClearCartHandler{})
	return head
}

func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}
