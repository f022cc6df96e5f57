package sched

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DateLocker serializes scheduling pipelines per date: at most one
// generate/apply may hold a date at a time, while different dates proceed in
// parallel.
type DateLocker interface {
	// Acquire returns a release func, or ErrScheduleInFlight when the date
	// is already held.
	Acquire(ctx context.Context, date string) (func(), error)
}

// MemoryLocker is the single-process default.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]bool{}}
}

func (l *MemoryLocker) Acquire(ctx context.Context, date string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[date] {
		return nil, ErrScheduleInFlight
	}
	l.held[date] = true
	return func() {
		l.mu.Lock()
		delete(l.held, date)
		l.mu.Unlock()
	}, nil
}

// RedisLocker holds a per-date advisory lock via SET NX so multiple API
// instances cannot race solves for the same date. The TTL guards against a
// crashed holder; releases only delete the key they set.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(url string, ttl time.Duration) (*RedisLocker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, date string) (func(), error) {
	key := "sched:lock:" + date
	ok, err := l.rdb.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrScheduleInFlight
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.rdb.Del(ctx, key).Err()
	}, nil
}
