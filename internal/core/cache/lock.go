package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"adaayien/pkg/utils"
)

var ErrLockTimeout = errors.New("cache: lock wait timeout")

// Locker 按 key 互斥；返回的 unlock 必须调用
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NewLocker 配置了 Redis 用分布式锁，否则进程内锁
func NewLocker(c *Cache, ttl time.Duration) Locker {
	if c.Enabled() {
		return NewRedisLocker(c.RDB, ttl)
	}
	return NewLocal()
}

// Local 进程内按 key 的互斥锁，引用计数归零即回收
type Local struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func NewLocal() *Local { return &Local{locks: map[string]*refMutex{}} }

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &refMutex{}
		l.locks[key] = m
	}
	m.refs++
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() { l.release(key, m) }, nil
	case <-ctx.Done():
		// 等到拿到锁后再释放，保证 refs 一致
		go func() {
			<-acquired
			l.release(key, m)
		}()
		return nil, ctx.Err()
	}
}

func (l *Local) release(key string, m *refMutex) {
	m.mu.Unlock()
	l.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// 只删除自己持有的锁
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Redis SET NX PX 实现；ttl 兜底防止持有者崩溃后死锁
type Redis struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
	wait  time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl, retry: 25 * time.Millisecond, wait: ttl}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	key = "lock:" + key
	token := utils.NewID()
	deadline := time.Now().Add(r.wait)
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// 请求 ctx 可能已取消，解锁用独立 ctx
				c, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = unlockScript.Run(c, r.rdb, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}
}
