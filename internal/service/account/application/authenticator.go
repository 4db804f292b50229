package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/account/domain"
	"storefront/internal/service/ratelimit"
)

// LoginAttempt 是一次登录请求。
type LoginAttempt struct {
	Identity string
	Password string
	IP       string
}

// Authenticator 只负责做出登录决策，会话的建立不在这里。
type Authenticator struct {
	users   domain.UserRepository
	guard   *SecurityGuard
	limiter *ratelimit.Limiter
	hasher  domain.PasswordHasher
	tracer  trace.Tracer
	now     func() time.Time
}

func NewAuthenticator(users domain.UserRepository, guard *SecurityGuard, limiter *ratelimit.Limiter, hasher domain.PasswordHasher, tracer trace.Tracer, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{users: users, guard: guard, limiter: limiter, hasher: hasher, tracer: tracer, now: now}
}

// Authenticate 依次检查 IP 限流、锁定状态和口令。
// 口令比较在每条路径上都会执行，所有拒绝都返回同一个 ErrAuthenticationFailed。
func (a *Authenticator) Authenticate(ctx context.Context, at LoginAttempt) (*domain.User, error) {
	ctx, span := a.tracer.Start(ctx, "auth.Authenticate")
	defer span.End()
	log := logger.Ctx(ctx)

	throttled, err := a.limiter.Exceeded(ctx, ratelimit.ActionLogin, at.IP)
	if err != nil {
		log.Error().Err(err).Msg("login limiter unavailable, allowing attempt")
	}

	u, err := a.users.FindByIdentity(ctx, at.Identity)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		span.RecordError(err)
		return nil, err
	}

	hash := ""
	if u != nil {
		hash = u.PasswordHash
	}
	ok := a.hasher.Verify(hash, at.Password)

	var reason string
	switch {
	case throttled:
		reason = "ip_throttled"
	case u == nil:
		reason = "unknown_identity"
	case u.Security.IsLockedOut(a.now()):
		reason = "locked_out"
	case !ok:
		reason = "bad_credentials"
	case !u.IsActive:
		reason = "inactive"
	}

	// 锁定和口令错误走同一段加锁读写，响应时间不区分两者。锁定期内只累加次数，不延长锁定。
	if reason == "locked_out" || reason == "bad_credentials" {
		if err := a.guard.RecordFailure(ctx, at.Identity); err != nil {
			log.Error().Err(err).Msg("failed to record authentication failure")
		}
	}

	if reason != "" {
		if reason == "ip_throttled" {
			_ = a.limiter.Reject(ctx, ratelimit.ActionLogin)
		} else if err := a.limiter.Hit(ctx, ratelimit.ActionLogin, at.IP); err != nil {
			log.Error().Err(err).Msg("failed to count login failure")
		}
		span.SetStatus(codes.Error, "authentication rejected")
		log.Info().Str("reason", reason).Str("ip", at.IP).Msg("authentication rejected")
		return nil, domain.ErrAuthenticationFailed
	}

	if u.Security.FailedAttempts > 0 {
		if err := a.guard.RecordSuccess(ctx, at.Identity); err != nil {
			log.Error().Err(err).Int64("user_id", u.ID).Msg("failed to reset security state")
		}
		u.Security.RecordSuccess()
	}
	return u, nil
}
