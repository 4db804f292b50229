// Package infrastructure 是订单仓储的 GORM 实现。
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/pkg/database"
	"storefront/internal/service/order/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ domain.OrderRepository = (*GormOrderRepository)(nil)

func (r *GormOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	m := fromDomainOrder(o)
	if err := database.Conn(ctx, r.db).Create(m).Error; err != nil {
		return pkgerrors.Wrap(err, "create order")
	}
	*o = *toDomainOrder(m)
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.find(database.Conn(ctx, r.db), id)
}

func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.find(database.ForUpdate(database.Conn(ctx, r.db)), id)
}

func (r *GormOrderRepository) find(db *gorm.DB, id int64) (*domain.Order, error) {
	var m OrderModel
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find order %d", id)
	}
	return toDomainOrder(&m), nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Order, error) {
	var models []OrderModel
	err := database.Conn(ctx, r.db).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list orders of user %d", userID)
	}
	return toDomainOrders(models), nil
}

// UpdateFulfillment 只更新状态和物流列。
func (r *GormOrderRepository) UpdateFulfillment(ctx context.Context, o *domain.Order) error {
	res := database.Conn(ctx, r.db).Model(&OrderModel{}).
		Where("id = ? AND integrity_flagged_at IS NULL", o.ID).
		Updates(map[string]any{
			"status":          string(o.Status),
			"tracking_number": o.TrackingNumber,
			"shipped_at":      o.ShippedAt,
			"delivered_at":    o.DeliveredAt,
			"updated_at":      o.UpdatedAt,
		})
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "update order %d", o.ID)
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderFlagged
	}
	return nil
}

func (r *GormOrderRepository) MarkFlagged(ctx context.Context, o *domain.Order) error {
	err := database.Conn(ctx, r.db).Model(&OrderModel{}).
		Where("id = ? AND integrity_flagged_at IS NULL", o.ID).
		Update("integrity_flagged_at", o.IntegrityFlaggedAt).Error
	return pkgerrors.Wrapf(err, "flag order %d", o.ID)
}

func (r *GormOrderRepository) Scan(ctx context.Context, afterID int64, batch int) ([]*domain.Order, error) {
	var models []OrderModel
	err := database.Conn(ctx, r.db).Preload("Items").
		Where("id > ?", afterID).Order("id").Limit(batch).Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "scan orders")
	}
	return toDomainOrders(models), nil
}

func toDomainOrders(models []OrderModel) []*domain.Order {
	out := make([]*domain.Order, 0, len(models))
	for i := range models {
		out = append(out, toDomainOrder(&models[i]))
	}
	return out
}
