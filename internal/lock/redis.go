package lock

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "briefapi:lock:"

// Redis is a Locker shared by every process pointing at the same Redis.
type Redis struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis connects to redisURL and returns a redsync-backed Locker.
// ttl bounds how long a crashed holder can keep the lock.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration, log zerolog.Logger) (*Redis, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required for the redis lock backend")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWithClient(client, ttl, log), nil
}

// NewRedisWithClient wraps an existing go-redis client.
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		log:    log.With().Str("component", "redis-lock").Logger(),
	}
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Locker = (*Redis)(nil)

const retryDelay = 100 * time.Millisecond

// Acquire polls until the lock is taken or ctx is done. While held, the lock
// is extended every ttl/2 so a long upload never outlives its expiry; the
// TTL only bounds how long a crashed holder blocks others.
func (r *Redis) Acquire(ctx context.Context, name string) (func(), error) {
	m := r.rs.NewMutex(keyPrefix+name,
		redsync.WithExpiry(r.ttl),
		redsync.WithTries(math.MaxInt32),
		redsync.WithRetryDelay(retryDelay),
	)
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(m, name, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if _, err := m.UnlockContext(context.Background()); err != nil {
				r.log.Error().Err(err).Str("lock", name).Msg("failed to release lock")
			}
		})
	}, nil
}

// keepAlive extends m until stop is closed or an extension fails.
func (r *Redis) keepAlive(m *redsync.Mutex, name string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := r.ttl / 2
	if interval <= 0 {
		interval = r.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			ok, err := m.ExtendContext(ctx)
			cancel()
			if err != nil || !ok {
				r.log.Error().Err(err).Str("lock", name).Msg("lost lock, extension failed")
				return
			}
		}
	}
}
