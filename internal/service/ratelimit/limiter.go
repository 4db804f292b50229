// Package ratelimit 实现按 (动作, 主体) 计数的固定窗口限流。
package ratelimit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/pkg/counter"
	"storefront/internal/pkg/errs"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
)

var tracer = otel.Tracer("ratelimit")

// Action 是一类被限流的操作，不同动作的计数互不影响。
type Action string

const (
	ActionRegistration  Action = "registration"   // 按 IP
	ActionLogin         Action = "login"          // 按 IP，只统计失败次数
	ActionPasswordReset Action = "password_reset" // 按 IP
	ActionCartAdd       Action = "cart_add"       // 按 IP
	ActionCheckout      Action = "checkout"       // 按用户
	ActionReview        Action = "review"         // 按用户
)

// ErrRateLimited 对外只表现为通用拒绝。
var ErrRateLimited = errs.New(errs.KindSecurityPolicy, "rate_limited", "too many requests")

// Rule 是固定窗口内允许的次数。
type Rule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRules 与线上默认配置一致。
func DefaultRules() map[Action]Rule {
	return map[Action]Rule{
		ActionRegistration:  {Limit: 5, Window: time.Hour},
		ActionLogin:         {Limit: 10, Window: 30 * time.Minute},
		ActionPasswordReset: {Limit: 3, Window: time.Hour},
		ActionCartAdd:       {Limit: 30, Window: time.Minute},
		ActionCheckout:      {Limit: 5, Window: time.Minute},
		ActionReview:        {Limit: 1, Window: 5 * time.Minute},
	}
}

type Limiter struct {
	store counter.Store
	rules map[Action]Rule
}

// NewLimiter 创建限流器，rules 中缺失的动作使用默认规则。
func NewLimiter(store counter.Store, rules map[Action]Rule) *Limiter {
	merged := DefaultRules()
	for a, r := range rules {
		if r.Limit > 0 && r.Window > 0 {
			merged[a] = r
		}
	}
	return &Limiter{store: store, rules: merged}
}

func key(action Action, subject string) string {
	return "rl:" + string(action) + ":" + subject
}

// Allow 是通用的计数接口：给 key 计数一次，返回本次是否仍在 limit 之内。
// 计数在第一次调用后 window 过期。
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	n, err := l.store.Increment(ctx, key, window)
	if err != nil {
		return false, err
	}
	return n <= limit, nil
}

// Check 为一次 action 计数，超出限制时返回 ErrRateLimited。
// 计数存储不可用时放行并记录错误日志，限流不应成为下单的单点故障。
func (l *Limiter) Check(ctx context.Context, action Action, subject string) error {
	ctx, span := tracer.Start(ctx, "ratelimit.Check")
	defer span.End()
	span.SetAttributes(attribute.String("ratelimit.action", string(action)))

	rule := l.rules[action]
	ok, err := l.Allow(ctx, key(action, subject), rule.Limit, rule.Window)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Str("action", string(action)).Msg("rate limit store unavailable, allowing request")
		return nil
	}
	if !ok {
		return l.reject(ctx, action)
	}
	return nil
}

// Exceeded 只读取计数，不增加。登录场景下先判断是否已超限，失败后再调用 Hit。
func (l *Limiter) Exceeded(ctx context.Context, action Action, subject string) (bool, error) {
	n, err := l.store.Get(ctx, key(action, subject))
	if err != nil {
		return false, err
	}
	return n >= l.rules[action].Limit, nil
}

// Hit 记录一次计数，不做判断。
func (l *Limiter) Hit(ctx context.Context, action Action, subject string) error {
	_, err := l.store.Increment(ctx, key(action, subject), l.rules[action].Window)
	return err
}

// Reject 记录一次拒绝并返回 ErrRateLimited，供只读判断的调用方使用。
func (l *Limiter) Reject(ctx context.Context, action Action) error {
	return l.reject(ctx, action)
}

func (l *Limiter) reject(ctx context.Context, action Action) error {
	metrics.RateLimitRejections.WithLabelValues(string(action)).Inc()
	logger.Ctx(ctx).Warn().Str("action", string(action)).Msg("rate limit exceeded")
	return ErrRateLimited
}
