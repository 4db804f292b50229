package adapter

import (
	"context"
	"errors"

	account "storefront/internal/service/account/domain"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
)

// AddressLookup 是账户服务提供的地址查询用例。
type AddressLookup interface {
	Address(ctx context.Context, userID, addressID int64) (*account.Address, error)
}

// AddressBookAdapter 实现了 port.AddressBook，把账户地址逐字段拷贝成订单快照。
type AddressBookAdapter struct {
	accounts AddressLookup
}

var _ port.AddressBook = (*AddressBookAdapter)(nil)

func NewAddressBookAdapter(accounts AddressLookup) *AddressBookAdapter {
	return &AddressBookAdapter{accounts: accounts}
}

func (a *AddressBookAdapter) Snapshot(ctx context.Context, userID, addressID int64) (domain.AddressSnapshot, error) {
	addr, err := a.accounts.Address(ctx, userID, addressID)
	if errors.Is(err, account.ErrAddressNotFound) {
		return domain.AddressSnapshot{}, domain.ErrAddressNotFound
	}
	if err != nil {
		return domain.AddressSnapshot{}, err
	}
	return domain.AddressSnapshot{
		FullName:     addr.FullName,
		AddressLine1: addr.AddressLine1,
		AddressLine2: addr.AddressLine2,
		City:         addr.City,
		State:        addr.State,
		PostalCode:   addr.PostalCode,
		Country:      addr.Country,
		Phone:        addr.Phone,
	}, nil
}
