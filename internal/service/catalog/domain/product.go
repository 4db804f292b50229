// Package domain 定义商品目录的领域模型。
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/pkg/errs"
)

var (
	ErrProductNotFound   = errs.New(errs.KindAvailability, "product_not_found", "product not found")
	ErrInsufficientStock = errs.New(errs.KindAvailability, "insufficient_stock", "insufficient stock")
	ErrInvalidProduct    = errs.New(errs.KindValidation, "invalid_product", "invalid product")
)

// Product 是目录中的商品，价格和库存以数据库中的当前值为准。
type Product struct {
	ID            int64
	SKU           string
	Name          string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	Stock         int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FinalPrice 有折扣价且低于原价时使用折扣价。
func (p *Product) FinalPrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.LessThan(p.Price) {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

func (p *Product) InStock() bool { return p.Stock > 0 }

// Purchasable 表示商品上架且有库存。
func (p *Product) Purchasable() bool { return p.IsActive && p.InStock() }

// Validate 检查商品创建时的字段。
func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return ErrInvalidProduct.Withf("product name is required")
	case p.Price.IsNegative():
		return ErrInvalidProduct.Withf("price must not be negative")
	case p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsNegative():
		return ErrInvalidProduct.Withf("discount price must not be negative")
	case p.Stock < 0:
		return ErrInvalidProduct.Withf("stock must not be negative")
	}
	return nil
}

// InsufficientStockError 携带商品和当前可用数量。
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Name, e.Requested, e.Available)
}

// Unwrap 让 errors.Is(err, ErrInsufficientStock) 和按类别的判断都成立。
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock.Withf("only %d of %q available", e.Available, e.Name)
}

// InsufficientStock 构造库存不足错误。
func InsufficientStock(p *Product, requested int) error {
	return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: requested, Available: p.Stock}
}
