package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/metrics"
	"github.com/whilber-ai/alert-engine/internal/models"
)

// Counter is the atomic arithmetic the limiter needs. Backed by Redis in
// production; tests swap in a fake.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
}

// RedisCounter increments hour-bucket keys with a TTL so stale buckets
// expire on their own. INCR is atomic, so two concurrent events can never
// both pass on a stale read.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Decr(ctx context.Context, key string) error {
	return c.client.Decr(ctx, key).Err()
}

// Limiter enforces the per-plan ceiling on notification creation per rolling
// hour. A throttled match is dropped silently from the subscriber's
// perspective; the drop is only visible on the throttled counter.
type Limiter struct {
	counter Counter
	logger  zerolog.Logger
	now     func() time.Time
}

func NewLimiter(counter Counter, logger zerolog.Logger) *Limiter {
	return &Limiter{
		counter: counter,
		logger:  logger.With().Str("component", "rate_limiter").Logger(),
		now:     time.Now,
	}
}

// Allow increments the subscriber's current hour bucket and reports whether
// the notification may be created. Counter failures fail open: a broken
// Redis must not silence every alert.
func (l *Limiter) Allow(ctx context.Context, sub models.Subscriber) bool {
	ceiling := sub.EffectiveQuota().NotificationsPerHour
	key := bucketKey(sub.ID, l.now())

	count, err := l.counter.Incr(ctx, key, 2*time.Hour)
	if err != nil {
		l.logger.Warn().Err(err).Str("subscriber_id", sub.ID).Msg("rate counter unavailable, allowing")
		return true
	}

	if count > int64(ceiling) {
		metrics.NotificationsThrottled.Inc()
		l.logger.Debug().
			Str("subscriber_id", sub.ID).
			Int64("count", count).
			Int("ceiling", ceiling).
			Msg("notification throttled")
		return false
	}
	return true
}

// Refund releases one slot from the subscriber's current hour bucket. Used
// when an allowed match turns out to be a dedup replay, so re-processing a
// batch cannot eat into the hour's budget for genuinely new alerts. Counter
// failures are ignored; the bucket expires on its own.
func (l *Limiter) Refund(ctx context.Context, sub models.Subscriber) {
	key := bucketKey(sub.ID, l.now())
	if err := l.counter.Decr(ctx, key); err != nil {
		l.logger.Warn().Err(err).Str("subscriber_id", sub.ID).Msg("rate counter refund failed")
	}
}

func bucketKey(subscriberID string, now time.Time) string {
	return fmt.Sprintf("alerts:rate:%s:%s", subscriberID, now.UTC().Format("2006010215"))
}
