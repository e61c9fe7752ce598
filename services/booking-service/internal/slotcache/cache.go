package slotcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "slots"
	defaultTTL    = time.Minute
	// minVersionTTL outlives any entry, so an expired version never
	// resurrects an entry written under the same number.
	minVersionTTL = 48 * time.Hour
)

// Cache keeps computed slot lists in Redis. Entry keys carry a global
// generation (bumped by InvalidateAll when business hours change) and a
// per-date version (bumped by Invalidate). A writer that computed against an
// older version stores under a key no reader will ask for again.
// A nil *Cache is a valid no-op cache. Redis failures are logged and treated as
// misses.
type Cache struct {
	rdb        *redis.Client
	ttl        time.Duration
	versionTTL time.Duration
	prefix     string
	logger     *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	versionTTL := minVersionTTL
	if 2*ttl > versionTTL {
		versionTTL = 2 * ttl
	}
	return &Cache{rdb: rdb, ttl: ttl, versionTTL: versionTTL, prefix: defaultPrefix, logger: logger}
}

// Get returns the cached slots for date. On a miss the returned stamp is the
// key Set should write under; it is empty when Redis could not be read.
func (c *Cache) Get(ctx context.Context, date time.Time) ([]availability.Minute, string, bool) {
	if c == nil {
		return nil, "", false
	}
	key, err := c.key(ctx, date)
	if err != nil {
		c.warn("slot cache version read failed", err)
		return nil, "", false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn("slot cache read failed", err)
		}
		return nil, key, false
	}
	slots, err := decode(raw)
	if err != nil {
		c.warn("slot cache entry corrupt", err)
		return nil, key, false
	}
	return slots, key, true
}

// Set stores slots under stamp, as returned by the Get that preceded the computation.
func (c *Cache) Set(ctx context.Context, _ time.Time, stamp string, slots []availability.Minute) {
	if c == nil || stamp == "" {
		return
	}
	raw, err := encode(slots)
	if err != nil {
		c.warn("slot cache encode failed", err)
		return
	}
	if err := c.rdb.Set(ctx, stamp, raw, c.ttl).Err(); err != nil {
		c.warn("slot cache write failed", err)
	}
}

// Invalidate bumps the date's version. Entries under older versions age out by TTL.
func (c *Cache) Invalidate(ctx context.Context, date time.Time) {
	if c == nil {
		return
	}
	vkey := versionKey(c.prefix, date)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, c.versionTTL)
		return nil
	})
	if err != nil {
		c.warn("slot cache invalidate failed", err)
	}
}

// InvalidateAll bumps the generation; older entries age out by TTL.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.warn("slot cache generation bump failed", err)
	}
}

func (c *Cache) key(ctx context.Context, date time.Time) (string, error) {
	vals, err := c.rdb.MGet(ctx, c.generationKey(), versionKey(c.prefix, date)).Result()
	if err != nil {
		return "", err
	}
	gen, err := counter(vals[0])
	if err != nil {
		return "", err
	}
	ver, err := counter(vals[1])
	if err != nil {
		return "", err
	}
	return entryKey(c.prefix, gen, date, ver), nil
}

func (c *Cache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *Cache) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "err", err)
	}
}

// counter reads an MGET value; a missing key counts as zero.
func counter(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected counter value %T", v)
	}
}

func versionKey(prefix string, date time.Time) string {
	return prefix + ":ver:" + date.Format(availability.DateLayout)
}

func entryKey(prefix string, gen int64, date time.Time, ver int64) string {
	return prefix + ":" + strconv.FormatInt(gen, 10) + ":" + date.Format(availability.DateLayout) + ":" + strconv.FormatInt(ver, 10)
}

func encode(slots []availability.Minute) ([]byte, error) {
	out := make([]int, len(slots))
	for i, s := range slots {
		out[i] = int(s)
	}
	return json.Marshal(out)
}

func decode(raw []byte) ([]availability.Minute, error) {
	var in []int
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	out := make([]availability.Minute, len(in))
	for i, v := range in {
		out[i] = availability.Minute(v)
	}
	return out, nil
}
