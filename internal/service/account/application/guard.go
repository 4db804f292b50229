// Package application 实现登录安全守卫、认证流程和地址簿用例。
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	"storefront/internal/service/account/domain"
)

// SecurityGuard 维护每个身份的连续失败次数和锁定时间。
// 状态写在用户行上，每次修改都在事务里先加行锁，多实例并发失败也不会丢计数。
type SecurityGuard struct {
	users  domain.UserRepository
	tx     *database.Transactor
	policy domain.LockoutPolicy
	tracer trace.Tracer
	now    func() time.Time
}

func NewSecurityGuard(users domain.UserRepository, tx *database.Transactor, policy domain.LockoutPolicy, tracer trace.Tracer, now func() time.Time) *SecurityGuard {
	if now == nil {
		now = time.Now
	}
	return &SecurityGuard{users: users, tx: tx, policy: policy, tracer: tracer, now: now}
}

// RecordFailure 记录一次失败，达到阈值时开始锁定。未知身份直接忽略。
func (g *SecurityGuard) RecordFailure(ctx context.Context, identity string) error {
	ctx, span := g.tracer.Start(ctx, "guard.RecordFailure")
	defer span.End()

	return g.mutate(ctx, identity, func(u *domain.User) {
		if u.Security.RecordFailure(g.now(), g.policy) {
			metrics.AccountLockouts.Inc()
			span.AddEvent("account locked out")
			logger.Ctx(ctx).Warn().
				Int64("user_id", u.ID).
				Time("lockout_until", *u.Security.LockoutUntil).
				Msg("account locked after repeated authentication failures")
		}
		span.SetAttributes(attribute.Int("guard.failed_attempts", u.Security.FailedAttempts))
	})
}

// RecordSuccess 清零计数并解除锁定，也用于运营的显式解锁。
func (g *SecurityGuard) RecordSuccess(ctx context.Context, identity string) error {
	ctx, span := g.tracer.Start(ctx, "guard.RecordSuccess")
	defer span.End()

	return g.mutate(ctx, identity, func(u *domain.User) { u.Security.RecordSuccess() })
}

// IsLockedOut 报告身份当前是否处于锁定期。未知身份不锁定。
func (g *SecurityGuard) IsLockedOut(ctx context.Context, identity string) (bool, error) {
	u, err := g.users.FindByIdentity(ctx, identity)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Security.IsLockedOut(g.now()), nil
}

func (g *SecurityGuard) mutate(ctx context.Context, identity string, fn func(u *domain.User)) error {
	found, err := g.users.FindByIdentity(ctx, identity)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return g.tx.InTx(ctx, func(ctx context.Context) error {
		u, err := g.users.FindByIDForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		fn(u)
		return g.users.SaveSecurity(ctx, u.ID, u.Security)
	})
}
