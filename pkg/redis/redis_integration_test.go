//go:build integration

package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "name-rotation/backend/pkg/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6380"
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis 不可用: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return NewFromClient(rdb, zap.NewNop())
}

func TestSessionLocker_ExclusiveAndRelease(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "session:" + uuid.NewString()

	locker := c.NewSessionLocker(5*time.Second, 200*time.Millisecond)
	unlock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, key)
	assert.True(t, errors.Is(err, pkgerrors.ErrSessionBusy), "锁被占用时应返回 ErrSessionBusy，实际: %v", err)

	unlock()
	unlock()

	unlock2, err := locker.Lock(ctx, key)
	require.NoError(t, err, "释放后应能再次获取")
	unlock2()
}

func TestSessionLocker_ExpiresAfterTTL(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "session:" + uuid.NewString()

	// 模拟已崩溃的持有者：锁存在但无人续期
	require.NoError(t, c.rdb.Set(ctx, lockPrefix+key, "dead-holder", 100*time.Millisecond).Err())

	locker := c.NewSessionLocker(time.Second, time.Second)
	unlock, err := locker.Lock(ctx, key)
	require.NoError(t, err, "TTL 到期后其他调用方应能获取")
	unlock()
}

func TestSessionLocker_RenewsWhileHeld(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "session:" + uuid.NewString()

	locker := c.NewSessionLocker(300*time.Millisecond, 100*time.Millisecond)
	unlock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	// 持有时间远超 TTL，锁仍应有效
	time.Sleep(time.Second)
	_, err = locker.Lock(ctx, key)
	assert.True(t, errors.Is(err, pkgerrors.ErrSessionBusy), "持有期间应持续续期，实际: %v", err)

	ttl, err := c.rdb.PTTL(ctx, lockPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	unlock()
	exists, err := c.rdb.Exists(ctx, lockPrefix+key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "释放后 key 应被删除")
}

func TestSessionLocker_StopsRenewingForeignToken(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "session:" + uuid.NewString()

	locker := c.NewSessionLocker(300*time.Millisecond, 100*time.Millisecond)
	unlock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	// 锁被其他持有者覆盖后，续期和释放都不应触碰对方的锁
	require.NoError(t, c.rdb.Set(ctx, lockPrefix+key, "other-holder", 5*time.Second).Err())
	time.Sleep(400 * time.Millisecond)
	unlock()

	val, err := c.rdb.Get(ctx, lockPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-holder", val)
	ttl, err := c.rdb.PTTL(ctx, lockPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Second, "其他持有者的 TTL 不应被改写")
	c.rdb.Del(ctx, lockPrefix+key)
}

func TestBlacklist(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := c.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.BlacklistToken(ctx, jti, time.Minute))
	revoked, err = c.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	// 已过期的 Token 不写入
	other := uuid.NewString()
	require.NoError(t, c.BlacklistToken(ctx, other, 0))
	revoked, err = c.IsBlacklisted(ctx, other)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCheckRateLimit(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "rate_limit:test:" + uuid.NewString()

	for i := 0; i < 3; i++ {
		ok, err := c.CheckRateLimit(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "第 %d 次请求应放行", i+1)
	}
	ok, err := c.CheckRateLimit(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "超过窗口上限应拒绝")
}
