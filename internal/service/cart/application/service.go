// Package application 编排购物车用例：加购、修改、删除以及登录时的合并。
package application

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/cart/domain"
	catalog "storefront/internal/service/catalog/domain"
)

type CartService struct {
	carts    domain.CartRepository
	products catalog.ProductRepository
	tx       *database.Transactor
	tracer   trace.Tracer
}

func NewCartService(carts domain.CartRepository, products catalog.ProductRepository, tx *database.Transactor, tracer trace.Tracer) *CartService {
	return &CartService{carts: carts, products: products, tx: tx, tracer: tracer}
}

func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

// GetOrCreate 懒创建购物车。
func (s *CartService) GetOrCreate(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "cart.GetOrCreate")
	defer span.End()
	cart, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, fail(span, err, "get or create cart failed")
	}
	return cart, nil
}

// View 返回购物车的实时视图，购物车不存在时返回空视图。
func (s *CartService) View(ctx context.Context, owner domain.CartOwner) (*CartView, error) {
	ctx, span := s.tracer.Start(ctx, "cart.View")
	defer span.End()

	cart, err := s.carts.FindByOwner(ctx, owner)
	if errors.Is(err, domain.ErrCartNotFound) {
		return &CartView{Lines: []LineView{}, Subtotal: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fail(span, err, "load cart failed")
	}
	return s.view(ctx, cart)
}

func (s *CartService) view(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	ids := make([]int64, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	price := func(productID int64) decimal.Decimal {
		if p, ok := products[productID]; ok {
			return p.FinalPrice()
		}
		return decimal.Zero
	}
	v := &CartView{
		CartID:     cart.ID,
		Lines:      make([]LineView, 0, len(cart.Lines)),
		TotalItems: domain.TotalItems(cart.Lines),
		Subtotal:   domain.Subtotal(cart.Lines, price),
	}
	for _, l := range cart.Lines {
		lv := LineView{Line: l, UnitPrice: price(l.ProductID)}
		lv.LineTotal = lv.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if p, ok := products[l.ProductID]; ok {
			lv.Name = p.Name
			lv.Stock = p.Stock
			lv.Available = p.Purchasable() && l.Quantity <= p.Stock
		}
		v.Lines = append(v.Lines, lv)
	}
	return v, nil
}

// AddItem 加购。数量超过库存时截断到库存并通过 AddResult.Capped 告知调用方。
func (s *CartService) AddItem(ctx context.Context, owner domain.CartOwner, productID int64, qty int) (AddResult, error) {
	ctx, span := s.tracer.Start(ctx, "cart.AddItem")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.owner", owner.String()),
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", qty),
	)

	if err := domain.ValidateQuantity(qty); err != nil {
		return AddResult{}, fail(span, err, "invalid quantity")
	}
	cart, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return AddResult{}, fail(span, err, "get or create cart failed")
	}

	var res AddResult
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.carts.LockByID(ctx, cart.ID)
		if err != nil {
			return err
		}
		product, err := s.products.Get(ctx, productID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return domain.ErrProductUnavailable.WithCause(err)
			}
			return err
		}
		if !product.Purchasable() {
			return domain.ErrProductUnavailable.Withf("%s is not available", product.Name)
		}

		requested := qty
		if line, ok := locked.Line(productID); ok {
			requested += line.Quantity
		}
		final, capped := domain.ClampQuantity(requested, product.Stock)
		res = AddResult{ProductID: productID, Quantity: final, Capped: capped}
		return s.carts.SetLineQuantity(ctx, locked.ID, productID, final, product.FinalPrice())
	})
	if err != nil {
		return AddResult{}, fail(span, err, "add item failed")
	}
	if res.Capped {
		span.AddEvent("quantity capped at stock")
		logger.Ctx(ctx).Info().Int64("product_id", productID).Int("quantity", res.Quantity).Msg("cart quantity capped at available stock")
	}
	return res, nil
}

// UpdateItem 把已有的行设置为 qty，同样截断到库存。
func (s *CartService) UpdateItem(ctx context.Context, owner domain.CartOwner, productID int64, qty int) (AddResult, error) {
	ctx, span := s.tracer.Start(ctx, "cart.UpdateItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID), attribute.Int("quantity", qty))

	if err := domain.ValidateQuantity(qty); err != nil {
		return AddResult{}, fail(span, err, "invalid quantity")
	}
	cart, err := s.carts.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			err = domain.ErrLineNotFound
		}
		return AddResult{}, fail(span, err, "load cart failed")
	}

	var res AddResult
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.carts.LockByID(ctx, cart.ID)
		if err != nil {
			return err
		}
		if _, ok := locked.Line(productID); !ok {
			return domain.ErrLineNotFound
		}
		product, err := s.products.Get(ctx, productID)
		if err != nil {
			return err
		}
		if !product.Purchasable() {
			return domain.ErrProductUnavailable.Withf("%s is not available", product.Name)
		}
		final, capped := domain.ClampQuantity(qty, product.Stock)
		res = AddResult{ProductID: productID, Quantity: final, Capped: capped}
		return s.carts.SetLineQuantity(ctx, locked.ID, productID, final, product.FinalPrice())
	})
	if err != nil {
		return AddResult{}, fail(span, err, "update item failed")
	}
	return res, nil
}

// RemoveItem 删除一行，行不存在时返回 ErrLineNotFound。
func (s *CartService) RemoveItem(ctx context.Context, owner domain.CartOwner, productID int64) error {
	ctx, span := s.tracer.Start(ctx, "cart.RemoveItem")
	defer span.End()

	cart, err := s.carts.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			err = domain.ErrLineNotFound
		}
		return fail(span, err, "load cart failed")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.carts.LockByID(ctx, cart.ID); err != nil {
			return err
		}
		deleted, err := s.carts.DeleteLine(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrLineNotFound
		}
		return nil
	})
}

// Clear 清空购物车，购物车不存在时什么也不做。
func (s *CartService) Clear(ctx context.Context, owner domain.CartOwner) error {
	ctx, span := s.tracer.Start(ctx, "cart.Clear")
	defer span.End()

	cart, err := s.carts.FindByOwner(ctx, owner)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return fail(span, err, "load cart failed")
	}
	return s.carts.ClearLines(ctx, cart.ID)
}

// MergeAnonymousIntoUser 把匿名购物车中仍可购买的商品并入用户购物车，然后删除匿名购物车。
// 两个购物车在同一事务内按 ID 升序加锁，与并发加购互斥且不会死锁。
func (s *CartService) MergeAnonymousIntoUser(ctx context.Context, sessionToken string, userID int64) (MergeResult, error) {
	ctx, span := s.tracer.Start(ctx, "cart.MergeAnonymousIntoUser")
	defer span.End()

	anonOwner, userOwner := domain.AnonymousOwner(sessionToken), domain.UserOwner(userID)
	if anonOwner.IsZero() || userOwner.IsZero() {
		return MergeResult{}, fail(span, domain.ErrInvalidOwner, "invalid owner")
	}

	anon, err := s.carts.FindByOwner(ctx, anonOwner)
	if errors.Is(err, domain.ErrCartNotFound) {
		userCart, err := s.carts.GetOrCreate(ctx, userOwner)
		if err != nil {
			return MergeResult{}, fail(span, err, "get user cart failed")
		}
		return MergeResult{CartID: userCart.ID}, nil
	}
	if err != nil {
		return MergeResult{}, fail(span, err, "load anonymous cart failed")
	}
	userCart, err := s.carts.GetOrCreate(ctx, userOwner)
	if err != nil {
		return MergeResult{}, fail(span, err, "get user cart failed")
	}

	res := MergeResult{CartID: userCart.ID}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		locked := make(map[int64]*domain.Cart, 2)
		order := []int64{anon.ID, userCart.ID}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
		for _, id := range order {
			c, err := s.carts.LockByID(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = c
		}
		src, dst := locked[anon.ID], locked[userCart.ID]

		res.Merged, res.Skipped = 0, nil
		for _, line := range src.Lines {
			product, err := s.products.Get(ctx, line.ProductID)
			if errors.Is(err, catalog.ErrProductNotFound) {
				res.Skipped = append(res.Skipped, line.ProductID)
				continue
			}
			if err != nil {
				return err
			}
			if !product.Purchasable() {
				res.Skipped = append(res.Skipped, line.ProductID)
				continue
			}
			requested := line.Quantity
			if existing, ok := dst.Line(line.ProductID); ok {
				requested += existing.Quantity
			}
			final, _ := domain.ClampQuantity(requested, product.Stock)
			if err := s.carts.SetLineQuantity(ctx, dst.ID, line.ProductID, final, line.PriceAtAddition); err != nil {
				return err
			}
			res.Merged++
		}
		return s.carts.Delete(ctx, src.ID)
	})
	if err != nil {
		return MergeResult{}, fail(span, err, "merge carts failed")
	}

	span.SetAttributes(attribute.Int("cart.merged_lines", res.Merged), attribute.Int("cart.skipped_lines", len(res.Skipped)))
	logger.Ctx(ctx).Info().Int64("user_id", userID).Int("merged", res.Merged).Int("skipped", len(res.Skipped)).Msg("anonymous cart merged")
	return res, nil
}

// ResolveForLogin 在登录后确定用户的购物车：有匿名购物车就合并，否则懒创建。
func (s *CartService) ResolveForLogin(ctx context.Context, userID int64, sessionToken string) (*domain.Cart, error) {
	if sessionToken != "" {
		if _, err := s.MergeAnonymousIntoUser(ctx, sessionToken, userID); err != nil {
			return nil, err
		}
	}
	return s.GetOrCreate(ctx, domain.UserOwner(userID))
}
