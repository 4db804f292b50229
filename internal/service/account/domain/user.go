// Package domain 定义账户、登录安全状态和地址簿。
package domain

import (
	"strings"
	"time"

	"storefront/internal/pkg/errs"
)

var (
	ErrUserNotFound  = errs.New(errs.KindAvailability, "user_not_found", "user not found")
	ErrInvalidUser   = errs.New(errs.KindValidation, "invalid_user", "invalid user")
	ErrDuplicateUser = errs.New(errs.KindValidation, "duplicate_user", "a user with that username or email already exists")
	ErrWeakPassword  = errs.New(errs.KindValidation, "weak_password", "password must be at least 8 characters")
)

const minPasswordLength = 8

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	Security     SecurityState
	CreatedAt    time.Time
}

// NormalizeIdentity 登录标识不区分大小写。
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *User) Validate() error {
	if u.Username == "" || len(u.Username) > 150 {
		return ErrInvalidUser.Withf("username must be 1-150 characters")
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidUser.Withf("invalid email address")
	}
	return nil
}

func ValidatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// PasswordHasher 是口令哈希的抽象。
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify 比较口令和哈希。hash 为空时也必须花费与正常比较相同的时间。
	Verify(hash, password string) bool
}
