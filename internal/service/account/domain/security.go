package domain

import (
	"time"

	"storefront/internal/pkg/errs"
)

// ErrAuthenticationFailed 是所有登录拒绝的唯一返回值。
// 锁定、限流、密码错误、用户不存在都用它，调用方无法区分具体原因。
var ErrAuthenticationFailed = errs.New(errs.KindSecurityPolicy, "authentication_failed", "invalid credentials")

// LockoutPolicy 是连续失败阈值和锁定时长。
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: 5, Duration: 30 * time.Minute}
}

// SecurityState 是挂在用户身上的登录安全状态。
// 状态机: Normal -(连续失败达到阈值)-> LockedOut -(到期或显式重置)-> Normal。
type SecurityState struct {
	FailedAttempts int
	LockoutUntil   *time.Time
}

// IsLockedOut 当且仅当 LockoutUntil 存在且晚于 now。
func (s SecurityState) IsLockedOut(now time.Time) bool {
	return s.LockoutUntil != nil && now.Before(*s.LockoutUntil)
}

// RecordFailure 记录一次失败，返回这次失败是否触发了锁定。
// 上一次锁定已经到期时先回到 Normal 再计数。
func (s *SecurityState) RecordFailure(now time.Time, p LockoutPolicy) bool {
	if s.LockoutUntil != nil && !now.Before(*s.LockoutUntil) {
		s.FailedAttempts = 0
		s.LockoutUntil = nil
	}
	s.FailedAttempts++
	if s.FailedAttempts >= p.Threshold && s.LockoutUntil == nil {
		until := now.Add(p.Duration)
		s.LockoutUntil = &until
		return true
	}
	return false
}

// RecordSuccess 清零计数并解除锁定。
func (s *SecurityState) RecordSuccess() {
	s.FailedAttempts = 0
	s.LockoutUntil = nil
}
