// Package infrastructure 是商品目录的 GORM 实现。
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/pkg/database"
	"storefront/internal/service/catalog/domain"
)

// GormProductRepository 是 ProductRepository 的 GORM 实现。
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

var _ domain.ProductRepository = (*GormProductRepository)(nil)

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m := fromDomainProduct(p)
	if err := database.Conn(ctx, r.db).Create(m).Error; err != nil {
		return pkgerrors.Wrap(err, "create product")
	}
	*p = *toDomainProduct(m)
	return nil
}

func (r *GormProductRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return r.find(database.Conn(ctx, r.db), id)
}

func (r *GormProductRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.find(database.ForUpdate(database.Conn(ctx, r.db)), id)
}

func (r *GormProductRepository) find(db *gorm.DB, id int64) (*domain.Product, error) {
	var m ProductModel
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find product %d", id)
	}
	return toDomainProduct(&m), nil
}

func (r *GormProductRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []ProductModel
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "find products")
	}
	for i := range models {
		out[models[i].ID] = toDomainProduct(&models[i])
	}
	return out, nil
}

// DecrementStock 使用条件更新，库存检查和扣减在同一条语句中完成。
func (r *GormProductRepository) DecrementStock(ctx context.Context, id int64, qty int) error {
	db := database.Conn(ctx, r.db)
	res := db.Model(&ProductModel{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "decrement stock of product %d", id)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	p, err := r.find(db, id)
	if err != nil {
		return err
	}
	return domain.InsufficientStock(p, qty)
}

func (r *GormProductRepository) RestoreStock(ctx context.Context, id int64, qty int) error {
	res := database.Conn(ctx, r.db).Model(&ProductModel{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "restore stock of product %d", id)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
