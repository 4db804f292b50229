package port

import (
	"context"

	"storefront/internal/service/order/domain"
)

// AddressBook 是账户服务地址簿的出站端口。
type AddressBook interface {
	// Snapshot 读取属于 userID 的地址并拷贝，不属于该用户时返回 domain.ErrAddressNotFound。
	Snapshot(ctx context.Context, userID, addressID int64) (domain.AddressSnapshot, error)
}
