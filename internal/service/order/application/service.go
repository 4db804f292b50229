// Package application 编排下单、取消和订单读取用例。
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/database"
	"storefront/internal/pkg/errs"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	cart "storefront/internal/service/cart/domain"
	catalog "storefront/internal/service/catalog/domain"
	"storefront/internal/service/order/application/checkout"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
)

// Options 是下单策略。零值使用默认定价和 degrade 策略。
type Options struct {
	Pricing      *domain.PricingPolicy
	CouponPolicy checkout.CouponPolicy
	Now          func() time.Time
}

// OrderApplicationService 只关注业务流程编排，持久化和消息都通过端口完成。
type OrderApplicationService struct {
	orders    domain.OrderRepository
	carts     cart.CartRepository
	products  catalog.ProductRepository
	coupons   port.CouponEngine
	addresses port.AddressBook
	events    port.EventPublisher
	secret    port.SecretProvider
	tx        *database.Transactor
	tracer    trace.Tracer

	pricing domain.PricingPolicy
	policy  checkout.CouponPolicy
	now     func() time.Time
	chain   checkout.Handler
}

func NewOrderApplicationService(
	orders domain.OrderRepository,
	carts cart.CartRepository,
	products catalog.ProductRepository,
	coupons port.CouponEngine,
	addresses port.AddressBook,
	events port.EventPublisher,
	secret port.SecretProvider,
	tx *database.Transactor,
	tracer trace.Tracer,
	opts Options,
) *OrderApplicationService {
	s := &OrderApplicationService{
		orders: orders, carts: carts, products: products,
		coupons: coupons, addresses: addresses, events: events, secret: secret,
		tx: tx, tracer: tracer,
		pricing: domain.DefaultPricingPolicy(),
		policy:  checkout.CouponDegrade,
		now:     time.Now,
		chain:   checkout.NewChain(),
	}
	if opts.Pricing != nil {
		s.pricing = *opts.Pricing
	}
	if opts.CouponPolicy != "" {
		s.policy = opts.CouponPolicy
	}
	if opts.Now != nil {
		s.now = opts.Now
	}
	return s
}

// PlaceOrder 把用户购物车原子地转换成订单。锁冲突类失败自动重试一次。
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.PlaceOrder")
	defer span.End()
	start := time.Now()
	defer func() { metrics.CheckoutDuration.Observe(time.Since(start).Seconds()) }()

	resp, err := s.placeOrder(ctx, req)
	if err != nil && errs.IsRetryable(err) {
		span.AddEvent("retrying after concurrency conflict")
		logger.Ctx(ctx).Warn().Err(err).Int64("user_id", req.UserID).Msg("placeOrder conflicted, retrying once")
		resp, err = s.placeOrder(ctx, req)
	}
	if err != nil {
		metrics.OrderFailures.WithLabelValues(string(errs.KindOf(err))).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order failed")
		ev := logger.Ctx(ctx).Warn()
		if kind := errs.KindOf(err); kind == errs.KindInternal || kind == errs.KindConcurrency {
			ev = logger.Ctx(ctx).Error()
		}
		ev.Err(err).Int64("user_id", req.UserID).Msg("place order failed")
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	o := resp.Order
	span.SetAttributes(attribute.Int64("order.id", o.ID), attribute.String("order.number", o.OrderNumber))
	logger.Ctx(ctx).Info().
		Int64("order_id", o.ID).
		Str("order_number", o.OrderNumber).
		Int64("user_id", o.UserID).
		Str("total", o.Total.StringFixed(2)).
		Msg("order placed")

	// 事务已经提交，事件发布失败只记录日志
	if err := s.events.PublishOrderPlaced(ctx, domain.NewOrderPlaced(o)); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", o.ID).Msg("failed to publish OrderPlaced")
	}
	return resp, nil
}

func (s *OrderApplicationService) placeOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	if req.UserID <= 0 {
		return nil, domain.ErrLoginRequired
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	shipping, err := s.addresses.Snapshot(ctx, req.UserID, req.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	billing, err := s.addresses.Snapshot(ctx, req.UserID, req.BillingAddressID)
	if err != nil {
		return nil, err
	}

	oc := &checkout.OrderContext{
		Tracer: s.tracer,
		Now:    s.now().UTC(),
		Req: &checkout.Request{
			UserID:          req.UserID,
			PaymentMethod:   method,
			CouponCode:      req.CouponCode,
			ShippingAddress: shipping,
			BillingAddress:  billing,
			Notes:           req.Notes,
			IPAddress:       req.IPAddress,
			UserAgent:       req.UserAgent,
		},
		Deps: &checkout.Deps{
			Carts:    s.carts,
			Products: s.products,
			Orders:   s.orders,
			Coupons:  s.coupons,
			Secret:   s.secret,
			Pricing:  s.pricing,
			Policy:   s.policy,
		},
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		oc.Ctx = ctx
		return s.chain.Handle(oc)
	})
	if err != nil {
		return nil, err
	}

	resp := &PlaceOrderResponse{Order: oc.Order}
	if oc.DroppedCoupon != nil {
		resp.CouponMessage = errs.PublicMessage(oc.DroppedCoupon)
	}
	return resp, nil
}

// CancelOrder 取消订单并逐行归还库存。userID 为 0 表示运营操作，不校验归属。
func (s *OrderApplicationService) CancelOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	var (
		o        *domain.Order
		tampered *domain.Order
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.lockOwned(ctx, userID, orderID); err != nil {
			return err
		}
		// 已标记的订单由 Cancel/Advance 拒绝，不重复告警
		if !o.IsFlagged() && !s.intact(o) {
			tampered = o
			return domain.ErrIntegrityViolation
		}
		if err := o.Cancel(s.now().UTC()); err != nil {
			return err
		}
		for _, it := range o.Items {
			if it.ProductID == nil {
				continue
			}
			err := s.products.RestoreStock(ctx, *it.ProductID, it.Quantity)
			if errors.Is(err, catalog.ErrProductNotFound) {
				continue
			}
			if err != nil {
				return err
			}
		}
		return s.orders.UpdateFulfillment(ctx, o)
	})
	if tampered != nil {
		s.raiseIntegrityAlert(ctx, tampered, "cancel")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel order failed")
		return nil, err
	}

	metrics.OrdersCancelled.Inc()
	logger.Ctx(ctx).Info().Int64("order_id", o.ID).Str("order_number", o.OrderNumber).Msg("order cancelled, stock restored")
	if err := s.events.PublishOrderCancelled(ctx, &domain.OrderCancelled{
		OrderID: o.ID, OrderNumber: o.OrderNumber, UserID: o.UserID, CancelledAt: o.UpdatedAt,
	}); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", o.ID).Msg("failed to publish OrderCancelled")
	}
	return o, nil
}

// AdvanceStatus 执行一次履约流转，只修改状态和物流字段。
func (s *OrderApplicationService) AdvanceStatus(ctx context.Context, req *AdvanceStatusRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.AdvanceStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", req.OrderID), attribute.String("order.to", string(req.To)))

	var o, tampered *domain.Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.lockOwned(ctx, 0, req.OrderID); err != nil {
			return err
		}
		// 已标记的订单由 Cancel/Advance 拒绝，不重复告警
		if !o.IsFlagged() && !s.intact(o) {
			tampered = o
			return domain.ErrIntegrityViolation
		}
		if err := o.Advance(req.To, req.TrackingNumber, s.now().UTC()); err != nil {
			return err
		}
		return s.orders.UpdateFulfillment(ctx, o)
	})
	if tampered != nil {
		s.raiseIntegrityAlert(ctx, tampered, "advance")
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return o, nil
}

// GetOrder 读取订单并校验完整性摘要。摘要不匹配时标记订单并告警，调用方拿不到订单数据。
func (s *OrderApplicationService) GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	if o.IsFlagged() {
		// 已经告警过，不重复通知
		return nil, domain.ErrIntegrityViolation
	}
	if !s.intact(o) {
		s.raiseIntegrityAlert(ctx, o, "read")
		span.SetStatus(codes.Error, "integrity violation")
		return nil, domain.ErrIntegrityViolation
	}
	return o, nil
}

// ListOrders 按创建时间倒序返回用户的订单。
// 每一行都重新校验摘要，不匹配或已标记的订单不出现在结果里。
func (s *OrderApplicationService) ListOrders(ctx context.Context, userID int64, limit int) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	if userID <= 0 {
		return nil, domain.ErrLoginRequired
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	orders, err := s.orders.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	kept := orders[:0]
	for _, o := range orders {
		switch {
		case o.IsFlagged():
		case !s.intact(o):
			s.raiseIntegrityAlert(ctx, o, "list")
			span.SetStatus(codes.Error, "integrity violation")
		default:
			kept = append(kept, o)
		}
	}
	return kept, nil
}

// VerifyIntegrity 重新计算摘要并与存储值比较，不产生任何副作用。
func (s *OrderApplicationService) VerifyIntegrity(ctx context.Context, orderID int64) (bool, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return s.intact(o), nil
}

// Audit 校验一笔订单，不匹配时标记并告警。已标记的订单不重复告警。
func (s *OrderApplicationService) Audit(ctx context.Context, o *domain.Order) bool {
	if s.intact(o) {
		return true
	}
	if !o.IsFlagged() {
		s.raiseIntegrityAlert(ctx, o, "audit")
	}
	return false
}

// Scan 分批遍历订单，供巡检使用。
func (s *OrderApplicationService) Scan(ctx context.Context, afterID int64, batch int) ([]*domain.Order, error) {
	return s.orders.Scan(ctx, afterID, batch)
}

func (s *OrderApplicationService) intact(o *domain.Order) bool {
	return domain.VerifyIntegrity(s.secret.IntegritySecret(), o)
}

func (s *OrderApplicationService) lockOwned(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	o, err := s.orders.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// raiseIntegrityAlert 标记订单并通知运维。订单数据保持原样，不做任何修复。
func (s *OrderApplicationService) raiseIntegrityAlert(ctx context.Context, o *domain.Order, source string) {
	now := s.now().UTC()
	metrics.IntegrityViolations.Inc()
	logger.Ctx(ctx).Error().
		Str("alert", "integrity_violation").
		Int64("order_id", o.ID).
		Str("order_number", o.OrderNumber).
		Str("source", source).
		Msg("stored order totals do not match their integrity digest")

	if !o.IsFlagged() {
		o.Flag(now)
		if err := s.orders.MarkFlagged(ctx, o); err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("order_id", o.ID).Msg("failed to flag order")
		}
	}
	if err := s.events.PublishIntegrityAlert(ctx, &domain.IntegrityViolationDetected{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		StoredDigest: o.IntegrityDigest,
		Source:       source,
		DetectedAt:   now,
	}); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", o.ID).Msg("failed to publish integrity alert")
	}
}
