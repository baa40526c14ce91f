package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "session:2025-03-10")
			if err != nil {
				t.Errorf("Lock 应成功: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("同一 key 同时只允许 1 个持有者，实际 %d", maxInside)
	}
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	locker := NewLocalLocker()
	unlockA, err := locker.Lock(context.Background(), "session:2025-03-10")
	if err != nil {
		t.Fatalf("Lock 应成功: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "session:2025-03-11")
	if err != nil {
		t.Fatalf("不同日期不应互相阻塞: %v", err)
	}
	unlockB()
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	locker := NewLocalLocker()
	unlock, _ := locker.Lock(context.Background(), "k")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("期望 ErrSessionBusy，实际: %v", err)
	}

	// 重复调用 unlock 无副作用，释放后可再次获取
	unlock()
	unlock()
	again, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("释放后应可再次加锁: %v", err)
	}
	again()

	ll := locker.(*localLocker)
	if len(ll.locks) != 0 {
		t.Errorf("无持有者时应回收 key，剩余 %d", len(ll.locks))
	}
}
