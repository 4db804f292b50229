package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/pkg/redis"
)

const fixedWindowScriptName = "counter_fixed_window"

// RedisStore 是基于 Redis 的 Store 实现，多实例部署时共享计数。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 计数器，并在初始化时注册所需的 Lua 脚本。
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if err := client.LoadScriptFromContent(fixedWindowScriptName, fixedWindowScript); err != nil {
		return nil, fmt.Errorf("failed to load counter script: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	result, err := s.client.RunScript(ctx, fixedWindowScriptName, []string{s.key(key)}, window.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("counter increment %s: %w", key, err)
	}
	n, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from counter script: %T", result)
	}
	return n, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.GetClient().Get(ctx, s.key(key)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counter get %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.GetClient().Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("counter reset %s: %w", key, err)
	}
	return nil
}

// fixedWindowScript 在同一次调用里完成 INCR 和首次设置过期时间，
// 避免 INCR 成功而 EXPIRE 丢失导致计数永不过期。
var fixedWindowScript = `
-- KEYS[1]: 计数 key, 例如: rl:login:ip:10.0.0.1
-- ARGV[1]: 窗口长度 (毫秒)

local n = redis.call('incr', KEYS[1])
if n == 1 or redis.call('pttl', KEYS[1]) < 0 then
    redis.call('pexpire', KEYS[1], ARGV[1])
end
return n
`
