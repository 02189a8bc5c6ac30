package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
	"messmate/internal/infra/metrics"
	red "messmate/internal/infra/redis"
)

var _ repository.MenuRepository = (*menuRepoCacheDecorator)(nil)

// menuRepoCacheDecorator caches range reads per mess. Writes bump a per-mess
// version instead of hunting down every cached range.
type menuRepoCacheDecorator struct {
	inner repository.MenuRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewMenuRepoCacheDecorator(inner repository.MenuRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.MenuRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "menuCache").Logger()
	return &menuRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func menuVersionKey(messID string) string { return fmt.Sprintf("menu:%s:ver", messID) }

func (d *menuRepoCacheDecorator) version(ctx context.Context, messID string) string {
	v, err := d.cache.Get(ctx, menuVersionKey(messID))
	if err != nil {
		if err != red.Nil {
			d.log.Warn().Err(err).Str("mess_id", messID).Msg("menu version lookup failed")
		}
		return "0"
	}
	return v
}

func (d *menuRepoCacheDecorator) ListByMessAndRange(ctx context.Context, tx repository.Tx, messID string, from, to time.Time) ([]*model.MenuEntry, error) {
	// Reads inside a transaction must see uncommitted writes.
	if tx != nil {
		return d.inner.ListByMessAndRange(ctx, tx, messID, from, to)
	}
	key := fmt.Sprintf("menu:%s:v%s:%s:%s", messID, d.version(ctx, messID), from.Format("2006-01-02"), to.Format("2006-01-02"))
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var entries []*model.MenuEntry
		if json.Unmarshal([]byte(val), &entries) == nil {
			metrics.IncCacheRequest("menu", "hit")
			return entries, nil
		}
	} else if err != red.Nil {
		d.log.Warn().Err(err).Str("key", key).Msg("menu cache read failed")
	}

	metrics.IncCacheRequest("menu", "miss")
	entries, err := d.inner.ListByMessAndRange(ctx, tx, messID, from, to)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(entries); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("menu cache write failed")
		}
	}
	return entries, nil
}

// Upsert writes through and then invalidates every cached range of the mess.
func (d *menuRepoCacheDecorator) Upsert(ctx context.Context, tx repository.Tx, e *model.MenuEntry) error {
	if err := d.inner.Upsert(ctx, tx, e); err != nil {
		return err
	}
	if _, err := d.cache.Incr(ctx, menuVersionKey(e.MessID)); err != nil {
		d.log.Warn().Err(err).Str("mess_id", e.MessID).Msg("menu cache invalidation failed")
	}
	return nil
}
