package timesource

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTimeSource uses the Redis TIME command so every node measures
// against the same clock regardless of local drift.
type RedisTimeSource struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisTimeSource(client *redis.Client) *RedisTimeSource {
	return &RedisTimeSource{
		client: client,
		ctx:    context.Background(),
	}
}

func (r *RedisTimeSource) Now() time.Time {
	t, err := r.client.Time(r.ctx).Result()
	if err != nil {
		// Fallback to system clock if Redis is down. Elapsed-time
		// measurements tolerate the skew; strictness is not worth
		// failing the caller here.
		return time.Now()
	}
	return t
}

func (r *RedisTimeSource) Sleep(d time.Duration) {
	time.Sleep(d)
}
