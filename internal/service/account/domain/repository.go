package domain

import "context"

// UserRepository 定义了用户及其安全状态的持久化接口。
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// FindByIdentity 按用户名或邮箱查找，不区分大小写。
	FindByIdentity(ctx context.Context, identity string) (*User, error)
	// FindByIDForUpdate 对用户行加锁，必须在事务内调用。
	FindByIDForUpdate(ctx context.Context, id int64) (*User, error)
	SaveSecurity(ctx context.Context, userID int64, s SecurityState) error
}

// AddressRepository 定义了地址簿的持久化接口。
type AddressRepository interface {
	Create(ctx context.Context, a *Address) error
	// FindOwned 只返回属于 userID 的地址，否则返回 ErrAddressNotFound。
	FindOwned(ctx context.Context, userID, id int64) (*Address, error)
	ListByUser(ctx context.Context, userID int64) ([]*Address, error)
	// ClearDefault 取消该用户该类型的默认地址。
	ClearDefault(ctx context.Context, userID int64, t AddressType) error
	SetDefault(ctx context.Context, userID, id int64) error
}
