package domain

import "context"

// ProductRepository 定义了商品的持久化接口。
// 在 Transactor.InTx 内调用时，所有方法都运行在同一个事务里。
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id int64) (*Product, error)
	// GetForUpdate 对商品行加排他锁，必须在事务内调用。
	GetForUpdate(ctx context.Context, id int64) (*Product, error)
	// GetMany 按 ID 批量读取，不存在的 ID 不出现在结果中。
	GetMany(ctx context.Context, ids []int64) (map[int64]*Product, error)
	// DecrementStock 只有库存 >= qty 时才扣减，否则返回 InsufficientStockError。
	DecrementStock(ctx context.Context, id int64, qty int) error
	RestoreStock(ctx context.Context, id int64, qty int) error
}
