package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vibe/internal/modules/executor"
	"vibe/internal/modules/planner"
	"vibe/internal/modules/venue"
)

const cacheKeyPrefix = "vibe:provider:"

// Cached serves repeated provider queries from Redis. Cache errors degrade to
// a direct call; only non-empty successful responses are stored.
type Cached struct {
	next   executor.Adapter
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(next executor.Adapter, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// CacheKey depends on every field that changes the provider request, not on
// the query or intent ids.
func CacheKey(q planner.Query) string {
	req := struct {
		Provider venue.Provider `json:"p"`
		Lat      float64        `json:"lat"`
		Lon      float64        `json:"lon"`
		Radius   int            `json:"r"`
		Text     string         `json:"t,omitempty"`
		Keywords []string       `json:"k,omitempty"`
		Type     string         `json:"ty,omitempty"`
		QL       string         `json:"ql,omitempty"`
		Kinds    []string       `json:"ki,omitempty"`
		MinRate  int            `json:"mr,omitempty"`
	}{q.Provider, q.Location.Lat, q.Location.Lon, q.RadiusMeters, q.TextQuery, q.Keywords, q.PlaceType, q.OverpassQL, q.Kinds, q.MinRate}
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + string(q.Provider) + ":" + hex.EncodeToString(sum[:16])
}

func (c *Cached) Search(ctx context.Context, q planner.Query) ([]venue.Candidate, error) {
	key := CacheKey(q)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cands []venue.Candidate
		if jerr := json.Unmarshal(raw, &cands); jerr == nil {
			return cands, nil
		}
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Debug("provider cache read failed", zap.String("key", key), zap.Error(err))
	}

	cands, err := c.next.Search(ctx, q)
	if err != nil || len(cands) == 0 {
		return cands, err
	}
	if raw, jerr := json.Marshal(cands); jerr == nil {
		if serr := c.rdb.Set(ctx, key, raw, c.ttl).Err(); serr != nil {
			c.logger.Debug("provider cache write failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return cands, nil
}
