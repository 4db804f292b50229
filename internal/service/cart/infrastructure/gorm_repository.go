// Package infrastructure 是购物车的 GORM 实现。
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/pkg/database"
	"storefront/internal/service/cart/domain"
)

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

var _ domain.CartRepository = (*GormCartRepository)(nil)

func ownerScope(owner domain.CartOwner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if id, ok := owner.UserID(); ok {
			return db.Where("user_id = ?", id)
		}
		token, _ := owner.SessionToken()
		return db.Where("session_token = ?", token)
	}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (r *GormCartRepository) FindByOwner(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, domain.ErrInvalidOwner
	}
	var m CartModel
	err := withLines(database.Conn(ctx, r.db)).Scopes(ownerScope(owner)).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCartNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find cart of %s", owner)
	}
	return toDomainCart(&m), nil
}

// GetOrCreate 使用 INSERT ... ON CONFLICT DO NOTHING，并发的首次加购只会产生一个购物车。
func (r *GormCartRepository) GetOrCreate(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, domain.ErrInvalidOwner
	}
	cart, err := r.FindByOwner(ctx, owner)
	if err == nil || !errors.Is(err, domain.ErrCartNotFound) {
		return cart, err
	}

	userID, token := ownerColumns(owner)
	m := CartModel{UserID: userID, SessionToken: token}
	if err := database.Conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "create cart for %s", owner)
	}
	return r.FindByOwner(ctx, owner)
}

func (r *GormCartRepository) LockByID(ctx context.Context, id int64) (*domain.Cart, error) {
	var m CartModel
	err := withLines(database.ForUpdate(database.Conn(ctx, r.db))).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCartNotFound
		}
		return nil, pkgerrors.Wrapf(err, "lock cart %d", id)
	}
	return toDomainCart(&m), nil
}

func (r *GormCartRepository) SetLineQuantity(ctx context.Context, cartID, productID int64, qty int, price decimal.Decimal) error {
	db := database.Conn(ctx, r.db)
	var line CartLineModel
	err := db.Where("cart_id = ? AND product_id = ?", cartID, productID).Limit(1).Find(&line).Error
	if err != nil {
		return pkgerrors.Wrap(err, "find cart line")
	}
	if line.ID != 0 {
		if err := db.Model(&line).Update("quantity", qty).Error; err != nil {
			return pkgerrors.Wrap(err, "update cart line")
		}
		return nil
	}
	line = CartLineModel{CartID: cartID, ProductID: productID, Quantity: qty, PriceAtAddition: price}
	if err := db.Create(&line).Error; err != nil {
		return pkgerrors.Wrap(err, "create cart line")
	}
	return nil
}

func (r *GormCartRepository) DeleteLine(ctx context.Context, cartID, productID int64) (bool, error) {
	res := database.Conn(ctx, r.db).Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&CartLineModel{})
	if res.Error != nil {
		return false, pkgerrors.Wrap(res.Error, "delete cart line")
	}
	return res.RowsAffected > 0, nil
}

func (r *GormCartRepository) ClearLines(ctx context.Context, cartID int64) error {
	if err := database.Conn(ctx, r.db).Where("cart_id = ?", cartID).Delete(&CartLineModel{}).Error; err != nil {
		return pkgerrors.Wrapf(err, "clear cart %d", cartID)
	}
	return nil
}

func (r *GormCartRepository) Delete(ctx context.Context, cartID int64) error {
	if err := r.ClearLines(ctx, cartID); err != nil {
		return err
	}
	if err := database.Conn(ctx, r.db).Delete(&CartModel{}, cartID).Error; err != nil {
		return pkgerrors.Wrapf(err, "delete cart %d", cartID)
	}
	return nil
}
