package bitrix

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ledger/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultSnapshotKey = "ledger:bitrix:categories"

// RedisSnapshotSource shares one category snapshot between server instances.
// A miss, an expired snapshot or any redis failure falls through to the
// inner source. Stored snapshots carry their load time.
type RedisSnapshotSource struct {
	client *redis.Client
	inner  CategorySource
	key    string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisSnapshotSource(client *redis.Client, inner CategorySource, ttl time.Duration) *RedisSnapshotSource {
	return &RedisSnapshotSource{client: client, inner: inner, key: DefaultSnapshotKey, ttl: ttl, now: time.Now}
}

// usable reports whether a snapshot read back from redis is still within
// its TTL. Snapshots without a load time are not trusted.
func (s *RedisSnapshotSource) usable(snap CategorySnapshot) bool {
	if snap.LoadedAt.IsZero() {
		return false
	}
	return s.now().Sub(snap.LoadedAt) < s.ttl
}

func (s *RedisSnapshotSource) LoadCategories(ctx context.Context) CategorySnapshot {
	log := logger.FromContext(ctx)

	data, err := s.client.Get(ctx, s.key).Bytes()
	switch {
	case err == nil:
		var snap CategorySnapshot
		if jerr := json.Unmarshal(data, &snap); jerr != nil {
			log.Warn("discarding corrupt category snapshot", zap.String("key", s.key))
		} else if s.usable(snap) {
			return snap
		}
	case !errors.Is(err, redis.Nil):
		log.Warn("redis get category snapshot", zap.Error(err))
	}

	snap := s.inner.LoadCategories(ctx)
	if snap.LoadedAt.IsZero() {
		snap.LoadedAt = s.now()
	}
	if snap.Empty() {
		return snap
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return snap
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		log.Warn("redis set category snapshot", zap.Error(err))
	}
	return snap
}
