package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// SeatKey names the seat inventory of one schedule on one date.
type SeatKey struct {
    ScheduleID uint64
    Date       time.Time
}

// SeatMapCache keeps rendered seat maps in Redis.  It is only a read
// accelerator: every failure is logged and treated as a miss, and a nil
// cache (or one without a client) does nothing.
type SeatMapCache struct {
    rdb    *redis.Client
    ttl    time.Duration
    prefix string
    log    logger.Logger
}

func NewSeatMapCache(rdb *redis.Client, ttl time.Duration, log logger.Logger) *SeatMapCache {
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    return &SeatMapCache{rdb: rdb, ttl: ttl, prefix: "seatmap", log: log}
}

func (c *SeatMapCache) key(k SeatKey) string {
    return fmt.Sprintf("%s:%d:%s", c.prefix, k.ScheduleID, model.FormatDate(k.Date))
}

func (c *SeatMapCache) enabled() bool { return c != nil && c.rdb != nil }

// Get returns the cached seat map for k, if any.
func (c *SeatMapCache) Get(ctx context.Context, k SeatKey) (*model.SeatMap, bool) {
    if !c.enabled() {
        return nil, false
    }
    raw, err := c.rdb.Get(ctx, c.key(k)).Bytes()
    if err != nil {
        if !errors.Is(err, redis.Nil) {
            c.log.Warn("seatmap cache get failed", "key", c.key(k), "error", err)
        }
        return nil, false
    }
    var m model.SeatMap
    if err := json.Unmarshal(raw, &m); err != nil {
        c.log.Warn("seatmap cache entry unreadable", "key", c.key(k), "error", err)
        return nil, false
    }
    return &m, true
}

// Set stores m under its schedule and date.
func (c *SeatMapCache) Set(ctx context.Context, k SeatKey, m *model.SeatMap) {
    if !c.enabled() || m == nil {
        return
    }
    raw, err := json.Marshal(m)
    if err != nil {
        return
    }
    if err := c.rdb.Set(ctx, c.key(k), raw, c.ttl).Err(); err != nil {
        c.log.Warn("seatmap cache set failed", "key", c.key(k), "error", err)
    }
}

// Invalidate drops the cached maps of the given keys.  Called after every
// commit that changes seat holdings.
func (c *SeatMapCache) Invalidate(ctx context.Context, keys ...SeatKey) {
    if !c.enabled() || len(keys) == 0 {
        return
    }
    seen := make(map[string]bool, len(keys))
    names := make([]string, 0, len(keys))
    for _, k := range keys {
        name := c.key(k)
        if !seen[name] {
            seen[name] = true
            names = append(names, name)
        }
    }
    if err := c.rdb.Del(ctx, names...).Err(); err != nil {
        c.log.Warn("seatmap cache invalidate failed", "keys", names, "error", err)
    }
}
