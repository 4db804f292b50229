package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 写入订单及其所有行，回填 ID。
	Create(ctx context.Context, o *Order) error
	// FindByID 读取订单及其行。
	FindByID(ctx context.Context, id int64) (*Order, error)
	// FindByIDForUpdate 加排他锁读取，必须在事务内调用。
	FindByIDForUpdate(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Order, error)
	// UpdateFulfillment 只写状态和物流相关字段，金额字段永远不会被更新。
	UpdateFulfillment(ctx context.Context, o *Order) error
	// MarkFlagged 记录完整性异常时间。
	MarkFlagged(ctx context.Context, o *Order) error
	// Scan 按 ID 升序分批遍历所有订单，用于离线巡检。
	Scan(ctx context.Context, afterID int64, batch int) ([]*Order, error)
}
