package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pkgerrors "name-rotation/backend/pkg/errors"
)

const (
	lockPrefix   = "lock:"
	lockPollStep = 50 * time.Millisecond
)

// releaseScript 仅当值仍是本次持有的 token 时才删除
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript 仅当值仍是本次持有的 token 时才续期
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// SessionLocker 基于 SET NX PX 的跨实例互斥锁
//
// ttl 为锁自动过期时间（持有者崩溃后自动释放），持有期间每 ttl/3 续期一次，
// 因此临界区耗时可以超过 ttl。wait 为获取锁的最长等待时间，超时返回 pkgerrors.ErrSessionBusy。
type SessionLocker struct {
	client *Client
	ttl    time.Duration
	wait   time.Duration
}

// NewSessionLocker 创建分布式会话锁
func (c *Client) NewSessionLocker(ttl, wait time.Duration) *SessionLocker {
	return &SessionLocker{client: c, ttl: ttl, wait: wait}
}

// Lock 获取 key 对应的锁，返回的 unlock 幂等
func (l *SessionLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	fullKey := lockPrefix + key

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockPollStep)
	defer ticker.Stop()

	for {
		ok, err := l.client.rdb.SetNX(waitCtx, fullKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			return nil, pkgerrors.ErrSessionBusy
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(fullKey, token, stop, done)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		close(stop)
		<-done
		// 调用方的 ctx 可能已取消，释放使用独立超时
		relCtx, relCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer relCancel()
		if err := releaseScript.Run(relCtx, l.client.rdb, []string{fullKey}, token).Err(); err != nil {
			l.client.logger.Warn("释放会话锁失败", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}

// keepAlive 周期性续期，直到 stop 关闭或锁已不属于本持有者
func (l *SessionLocker) keepAlive(fullKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := renewScript.Run(ctx, l.client.rdb, []string{fullKey}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			// 单次失败在下个周期重试
			l.client.logger.Warn("会话锁续期失败", zap.String("key", fullKey), zap.Error(err))
			continue
		}
		if n == 0 {
			l.client.logger.Error("会话锁已丢失，可能已被其他实例获取", zap.String("key", fullKey))
			return
		}
	}
}
