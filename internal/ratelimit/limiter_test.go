package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/models"
)

type fakeCounter struct {
	counts  map[string]int64
	lastTTL time.Duration
	err     error
}

func (c *fakeCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	c.lastTTL = ttl
	return c.counts[key], nil
}

func (c *fakeCounter) Decr(_ context.Context, key string) error {
	if c.err != nil {
		return c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]--
	return nil
}

func freePlanSubscriber() models.Subscriber {
	return models.Subscriber{ID: "owner-1", Plan: models.PlanFree}
}

func TestAllowUpToPlanCeiling(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewLimiter(counter, zerolog.Nop())
	limiter.now = func() time.Time { return time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC) }

	sub := freePlanSubscriber()
	ceiling := sub.EffectiveQuota().NotificationsPerHour

	for i := 0; i < ceiling; i++ {
		if !limiter.Allow(context.Background(), sub) {
			t.Fatalf("Allow() = false at count %d, ceiling %d", i+1, ceiling)
		}
	}
	if limiter.Allow(context.Background(), sub) {
		t.Fatal("Allow() = true above the plan ceiling")
	}
}

func TestAllowUsesHourBuckets(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewLimiter(counter, zerolog.Nop())

	current := time.Date(2026, 3, 1, 14, 59, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	sub := freePlanSubscriber()
	ceiling := sub.EffectiveQuota().NotificationsPerHour
	for i := 0; i < ceiling; i++ {
		limiter.Allow(context.Background(), sub)
	}
	if limiter.Allow(context.Background(), sub) {
		t.Fatal("expected throttling at the ceiling")
	}

	// The next hour starts a fresh bucket.
	current = current.Add(time.Minute)
	if !limiter.Allow(context.Background(), sub) {
		t.Fatal("Allow() = false in a fresh hour bucket")
	}
	if counter.lastTTL != 2*time.Hour {
		t.Errorf("bucket TTL = %v, want 2h", counter.lastTTL)
	}
}

func TestPerHourOverrideRaisesCeiling(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewLimiter(counter, zerolog.Nop())
	limiter.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	override := 2
	sub := models.Subscriber{ID: "owner-1", Plan: models.PlanFree, PerHourOverride: &override}

	if !limiter.Allow(context.Background(), sub) || !limiter.Allow(context.Background(), sub) {
		t.Fatal("Allow() = false within the override ceiling")
	}
	if limiter.Allow(context.Background(), sub) {
		t.Fatal("Allow() = true above the override ceiling")
	}
}

func TestRefundReleasesSlot(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewLimiter(counter, zerolog.Nop())
	limiter.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	override := 1
	sub := models.Subscriber{ID: "owner-1", Plan: models.PlanFree, PerHourOverride: &override}

	if !limiter.Allow(context.Background(), sub) {
		t.Fatal("Allow() = false within the ceiling")
	}

	// A refunded slot is usable again in the same hour bucket.
	limiter.Refund(context.Background(), sub)
	if !limiter.Allow(context.Background(), sub) {
		t.Fatal("Allow() = false after a refund freed the slot")
	}
	if limiter.Allow(context.Background(), sub) {
		t.Fatal("Allow() = true above the ceiling after the refund was spent")
	}
}

func TestCounterFailureFailsOpen(t *testing.T) {
	counter := &fakeCounter{err: errors.New("redis unreachable")}
	limiter := NewLimiter(counter, zerolog.Nop())

	if !limiter.Allow(context.Background(), freePlanSubscriber()) {
		t.Fatal("Allow() must fail open when the counter is unavailable")
	}
}

func TestBucketKeyFormat(t *testing.T) {
	at := time.Date(2026, 3, 1, 14, 59, 59, 0, time.UTC)
	if got, want := bucketKey("owner-1", at), "alerts:rate:owner-1:2026030114"; got != want {
		t.Errorf("bucketKey() = %q, want %q", got, want)
	}
}
