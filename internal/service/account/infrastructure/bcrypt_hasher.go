package infrastructure

import (
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/service/account/domain"
)

// BcryptHasher 是 PasswordHasher 的 bcrypt 实现。
type BcryptHasher struct {
	cost  int
	dummy []byte
}

var _ domain.PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher 创建哈希器。dummy 用于用户不存在或哈希缺失时的比较，
// 保证所有拒绝路径都执行一次完整的 bcrypt 计算。
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), cost)
	if err != nil {
		return nil, err
	}
	return &BcryptHasher{cost: cost, dummy: dummy}, nil
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
