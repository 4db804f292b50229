// Package counter 提供按 key 计数、带过期时间的计数器服务。
// 限流器和登录失败计数都依赖这里的窄接口，而不是直接引用全局缓存。
package counter

import (
	"context"
	"time"
)

// Store 是计数器服务的抽象。
type Store interface {
	// Increment 原子地加一并返回新值。key 第一次出现时开始计时，window 之后整个计数过期。
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Get 返回当前值，不存在或已过期时返回 0。
	Get(ctx context.Context, key string) (int64, error)
	// Reset 删除计数。
	Reset(ctx context.Context, key string) error
}
