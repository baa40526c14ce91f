package service

import (
	"context"
	"sync"
)

// SessionLocker 按会话日期串行化生成/清空操作。
// Lock 返回的 unlock 必须且只能调用一次。
type SessionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// localLocker 进程内按 key 加锁；单实例部署或 Redis 不可用时使用，多实例之间不互斥
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker 创建进程内 SessionLocker
func NewLocalLocker() SessionLocker {
	return &localLocker{locks: make(map[string]*keyLock)}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ErrSessionBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

// release 引用归零时回收 key，避免按日期无限增长
func (l *localLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
