package service

import (
	"context"
	"sync"
	"time"
)

// keyedLocker 按键互斥的进程内锁
// 同一谱系的版本链变更串行执行，不同键互不阻塞；等待超过 wait 返回 ErrConcurrentModification
type keyedLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
	wait  time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int // 持有者 + 等待者
}

func newKeyedLocker(wait time.Duration) *keyedLocker {
	return &keyedLocker{slots: make(map[string]*lockSlot), wait: wait}
}

// Lock 获取 key 对应的锁，返回释放函数
func (l *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	case <-timer.C:
		l.release(key, s)
		return nil, ErrConcurrentModification
	}
}

func (l *keyedLocker) release(key string, s *lockSlot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// size 当前存活的键数量（测试用）
func (l *keyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
