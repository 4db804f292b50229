// Package infrastructure 是账户服务的 GORM 和 bcrypt 实现。
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/pkg/database"
	"storefront/internal/service/account/domain"
)

// GormUserRepository 是 UserRepository 的 GORM 实现。
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var _ domain.UserRepository = (*GormUserRepository)(nil)

func (r *GormUserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	m := fromDomainUser(u)
	conn := database.Conn(ctx, r.db)

	var n int64
	if err := conn.Model(&UserModel{}).
		Where("LOWER(username) = ? OR email = ?", domain.NormalizeIdentity(m.Username), m.Email).
		Count(&n).Error; err != nil {
		return pkgerrors.Wrap(err, "check duplicate user")
	}
	if n > 0 {
		return domain.ErrDuplicateUser
	}
	if err := conn.Create(m).Error; err != nil {
		return pkgerrors.Wrap(err, "create user")
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *GormUserRepository) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	id := domain.NormalizeIdentity(identity)
	var m UserModel
	err := database.Conn(ctx, r.db).
		Where("LOWER(username) = ? OR email = ?", id, id).
		First(&m).Error
	return r.result(&m, err)
}

func (r *GormUserRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	var m UserModel
	err := database.ForUpdate(database.Conn(ctx, r.db)).Where("id = ?", id).First(&m).Error
	return r.result(&m, err)
}

func (r *GormUserRepository) result(m *UserModel, err error) (*domain.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find user")
	}
	return toDomainUser(m), nil
}

func (r *GormUserRepository) SaveSecurity(ctx context.Context, userID int64, s domain.SecurityState) error {
	err := database.Conn(ctx, r.db).Model(&UserModel{}).Where("id = ?", userID).
		Updates(map[string]any{
			"failed_login_attempts": s.FailedAttempts,
			"lockout_until":         s.LockoutUntil,
		}).Error
	return pkgerrors.Wrapf(err, "save security state of user %d", userID)
}

// GormAddressRepository 是 AddressRepository 的 GORM 实现。
type GormAddressRepository struct {
	db *gorm.DB
}

func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

var _ domain.AddressRepository = (*GormAddressRepository)(nil)

func (r *GormAddressRepository) Create(ctx context.Context, a *domain.Address) error {
	m := fromDomainAddress(a)
	if err := database.Conn(ctx, r.db).Create(m).Error; err != nil {
		return pkgerrors.Wrap(err, "create address")
	}
	*a = *toDomainAddress(m)
	return nil
}

func (r *GormAddressRepository) FindOwned(ctx context.Context, userID, id int64) (*domain.Address, error) {
	var m AddressModel
	err := database.Conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAddressNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find address %d", id)
	}
	return toDomainAddress(&m), nil
}

func (r *GormAddressRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Address, error) {
	var models []AddressModel
	err := database.Conn(ctx, r.db).Where("user_id = ?", userID).
		Order("is_default DESC").Order("created_at DESC").Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list addresses of user %d", userID)
	}
	out := make([]*domain.Address, 0, len(models))
	for i := range models {
		out = append(out, toDomainAddress(&models[i]))
	}
	return out, nil
}

func (r *GormAddressRepository) ClearDefault(ctx context.Context, userID int64, t domain.AddressType) error {
	err := database.Conn(ctx, r.db).Model(&AddressModel{}).
		Where("user_id = ? AND address_type = ? AND is_default = ?", userID, string(t), true).
		Update("is_default", false).Error
	return pkgerrors.Wrap(err, "clear default address")
}

func (r *GormAddressRepository) SetDefault(ctx context.Context, userID, id int64) error {
	res := database.Conn(ctx, r.db).Model(&AddressModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_default", true)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "set default address")
	}
	if res.RowsAffected == 0 {
		return domain.ErrAddressNotFound
	}
	return nil
}
