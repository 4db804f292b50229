package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartRepository 定义了购物车的持久化接口。
type CartRepository interface {
	// FindByOwner 返回购物车及其所有行，不存在时返回 ErrCartNotFound。
	FindByOwner(ctx context.Context, owner CartOwner) (*Cart, error)
	// GetOrCreate 并发安全地创建购物车，已存在时直接返回。
	GetOrCreate(ctx context.Context, owner CartOwner) (*Cart, error)
	// LockByID 对购物车行加排他锁并重新读取所有行，必须在事务内调用。
	LockByID(ctx context.Context, id int64) (*Cart, error)
	// SetLineQuantity 创建或更新一行。price 只在新建时写入。
	SetLineQuantity(ctx context.Context, cartID, productID int64, qty int, price decimal.Decimal) error
	DeleteLine(ctx context.Context, cartID, productID int64) (bool, error)
	ClearLines(ctx context.Context, cartID int64) error
	// Delete 删除购物车及其所有行。
	Delete(ctx context.Context, cartID int64) error
}
