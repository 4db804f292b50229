// Package domain 定义购物车聚合。
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/pkg/errs"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

var (
	ErrInvalidQuantity    = errs.New(errs.KindValidation, "invalid_quantity", "quantity must be between 1 and 99")
	ErrInvalidOwner       = errs.New(errs.KindValidation, "invalid_cart_owner", "cart owner is required")
	ErrProductUnavailable = errs.New(errs.KindAvailability, "product_unavailable", "product is not available")
	ErrLineNotFound       = errs.New(errs.KindAvailability, "cart_item_not_found", "item is not in the cart")
	ErrCartNotFound       = errs.New(errs.KindAvailability, "cart_not_found", "cart not found")
)

// Cart 是一个可变的 (商品, 数量) 集合。
type Cart struct {
	ID        int64
	Owner     CartOwner
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line 是购物车中的一行，(CartID, ProductID) 唯一。
// PriceAtAddition 只在第一次加入时记录，仅用于展示，下单时以实时价格为准。
type Line struct {
	ID              int64
	CartID          int64
	ProductID       int64
	Quantity        int
	PriceAtAddition decimal.Decimal
	AddedAt         time.Time
}

// Line 返回指定商品所在的行。
func (c *Cart) Line(productID int64) (*Line, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// ValidateQuantity 检查调用方传入的数量。
func ValidateQuantity(qty int) error {
	if qty < MinQuantity || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// ClampQuantity 把数量限制在库存和单行上限之内，返回实际数量以及是否发生了截断。
func ClampQuantity(requested, stock int) (int, bool) {
	limit := stock
	if limit > MaxQuantity {
		limit = MaxQuantity
	}
	if requested > limit {
		return limit, true
	}
	return requested, false
}

// TotalItems 是所有行数量之和。
func TotalItems(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Subtotal 按 price 给出的单价累加每一行，price 通常是商品的实时价格。
func Subtotal(lines []Line, price func(productID int64) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(price(l.ProductID).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
