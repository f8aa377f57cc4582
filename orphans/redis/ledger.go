// Package redisorphans keeps a ledger of orphaned objects in a Redis list so
// an operator job can delete them later.
package redisorphans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	mediarouter "github.com/shoraid/go-media-router"
)

// DefaultKey is the Redis list holding pending orphans.
const DefaultKey = "mediarouter:orphans"

type listClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Ledger implements mediarouter.OrphanReporter.
type Ledger struct {
	client listClient
	key    string
	log    zerolog.Logger
}

var _ mediarouter.OrphanReporter = (*Ledger)(nil)

func New(client listClient, key string, log zerolog.Logger) *Ledger {
	if key == "" {
		key = DefaultKey
	}
	return &Ledger{
		client: client,
		key:    key,
		log:    log.With().Str("component", "orphan-ledger").Logger(),
	}
}

// Report appends the orphan to the ledger.
func (l *Ledger) Report(ctx context.Context, orphan mediarouter.Orphan) error {
	payload, err := json.Marshal(orphan)
	if err != nil {
		return fmt.Errorf("encode orphan: %w", err)
	}
	if err := l.client.RPush(ctx, l.key, payload).Err(); err != nil {
		return fmt.Errorf("push orphan: %w", err)
	}
	return nil
}

// Pending returns the number of orphans waiting for reclamation.
func (l *Ledger) Pending(ctx context.Context) (int64, error) {
	n, err := l.client.LLen(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count orphans: %w", err)
	}
	return n, nil
}

// ReclaimResult summarises one Reclaim run.
type ReclaimResult struct {
	Reclaimed int
	Requeued  int
	Skipped   int // requeued untouched because the slot is unavailable
	Dropped   int
}

// Reclaim pops at most max orphans and deletes their objects. Entries whose
// deletion fails are pushed back with Attempts incremented. Entries of a slot
// that is no longer configured are pushed back without deleting anything,
// since the primary may hold live objects under the same keys. Unreadable
// entries are dropped.
func (l *Ledger) Reclaim(ctx context.Context, registry *mediarouter.Registry, max int) (ReclaimResult, error) {
	var res ReclaimResult

	for i := 0; i < max; i++ {
		raw, err := l.client.LPop(ctx, l.key).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("pop orphan: %w", err)
		}

		var orphan mediarouter.Orphan
		if err := json.Unmarshal([]byte(raw), &orphan); err != nil {
			l.log.Error().Err(err).Str("entry", raw).Msg("dropping unreadable orphan entry")
			res.Dropped++
			continue
		}

		resolved, err := registry.Resolve(orphan.ProviderID)
		if err != nil {
			l.log.Error().Err(err).Str("entry", raw).Msg("dropping orphan entry with unknown provider")
			res.Dropped++
			continue
		}
		if resolved != orphan.ProviderID {
			l.log.Warn().
				Str("provider", orphan.ProviderID.String()).
				Strs("keys", orphan.Keys).
				Msg("orphan provider is not configured, keeping entry")
			if err := l.Report(ctx, orphan); err != nil {
				return res, err
			}
			res.Skipped++
			continue
		}

		p, err := registry.Provider(ctx, orphan.ProviderID)
		if err == nil {
			err = p.DeleteObjects(ctx, orphan.Keys...)
		}
		if err != nil {
			orphan.Attempts++
			orphan.Cause = err.Error()
			l.log.Warn().
				Err(err).
				Str("provider", orphan.ProviderID.String()).
				Strs("keys", orphan.Keys).
				Int("attempts", orphan.Attempts).
				Msg("orphan reclamation failed, requeueing")
			if err := l.Report(ctx, orphan); err != nil {
				return res, err
			}
			res.Requeued++
			continue
		}

		l.log.Info().
			Str("provider", orphan.ProviderID.String()).
			Strs("keys", orphan.Keys).
			Str("reason", string(orphan.Reason)).
			Msg("orphaned objects reclaimed")
		res.Reclaimed++
	}

	return res, nil
}
