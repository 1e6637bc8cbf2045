package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"villabook/internal/availability"
	"villabook/internal/dates"
	"villabook/internal/interval"
)

// CachedSource wraps a BusySource with a Redis read-through cache keyed
// by calendar and window. Calendar data changes rarely compared to how
// often the booking form polls it, so a short TTL removes most quota
// pressure without risking stale confirmations.
type CachedSource struct {
	inner availability.BusySource
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedSource wraps inner. With a nil client or non-positive TTL the
// wrapper is a passthrough.
func NewCachedSource(inner availability.BusySource, redisClient *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, redis: redisClient, ttl: ttl}
}

type cachedBusy struct {
	Periods []cachedPeriod `json:"periods"`
}

type cachedPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FreeBusy serves from cache when possible, otherwise queries the inner
// source and stores the result. Cache failures fall through to the
// source; they never fail the query.
func (c *CachedSource) FreeBusy(ctx context.Context, calendarID string, window interval.Interval) ([]interval.Interval, error) {
	key := fmt.Sprintf("freebusy:%s:%s:%s",
		calendarID, dates.FormatISO(window.Start), dates.FormatISO(window.End))

	if busy, ok := c.read(ctx, key); ok {
		return busy, nil
	}

	busy, err := c.inner.FreeBusy(ctx, calendarID, window)
	if err != nil {
		return nil, err
	}
	c.write(ctx, key, busy)
	return busy, nil
}

func (c *CachedSource) read(ctx context.Context, key string) ([]interval.Interval, bool) {
	if c.redis == nil || c.ttl <= 0 {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var cached cachedBusy
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, false
	}
	busy := make([]interval.Interval, 0, len(cached.Periods))
	for _, p := range cached.Periods {
		start, err := dates.Parse(p.Start)
		if err != nil {
			return nil, false
		}
		end, err := dates.Parse(p.End)
		if err != nil {
			return nil, false
		}
		busy = append(busy, interval.Interval{Start: start, End: end})
	}
	return busy, true
}

func (c *CachedSource) write(ctx context.Context, key string, busy []interval.Interval) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	cached := cachedBusy{Periods: make([]cachedPeriod, 0, len(busy))}
	for _, iv := range busy {
		cached.Periods = append(cached.Periods, cachedPeriod{
			Start: dates.FormatISO(iv.Start),
			End:   dates.FormatISO(iv.End),
		})
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}
