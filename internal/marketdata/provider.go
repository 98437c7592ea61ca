package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const snapshotKey = "snapshot"

// Source returns the latest observation of one series.
type Source interface {
	Latest(ctx context.Context, seriesID string) (models.Observation, error)
}

// Provider assembles and caches a MarketContext from a Source.
type Provider struct {
	source Source
	series []string
	cache  Cache
	ttl    time.Duration
}

// NewProvider creates a provider. A nil source yields empty snapshots; a nil
// cache defaults to an in-process one.
func NewProvider(source Source, series []string, cache Cache, ttl time.Duration) *Provider {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Provider{
		source: source,
		series: series,
		cache:  cache,
		ttl:    ttl,
	}
}

// Snapshot returns the cached market context, refreshing it when stale.
func (p *Provider) Snapshot(ctx context.Context) (models.MarketContext, error) {
	if p.source == nil {
		return models.MarketContext{}, nil
	}

	cached, ok, err := p.cache.Get(ctx, snapshotKey)
	if err != nil {
		log.Warn().Err(err).Msg("Market cache read failed")
	} else if ok {
		return cached, nil
	}

	return p.Refresh(ctx)
}

// Refresh fetches every configured series and replaces the cached snapshot.
// Series that fail are skipped; an error is returned only when none succeed.
func (p *Provider) Refresh(ctx context.Context) (models.MarketContext, error) {
	snapshot := models.MarketContext{}
	if p.source == nil || len(p.series) == 0 {
		return snapshot, nil
	}

	var (
		mu       sync.Mutex
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, id := range p.series {
		id := id
		g.Go(func() error {
			obs, err := p.source.Latest(gctx, id)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if !errors.Is(err, ErrNoObservation) {
					log.Warn().Err(err).Str("series", id).Msg("Failed to fetch indicator")
				}
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			snapshot[id] = obs
			return nil
		})
	}
	g.Wait()

	if len(snapshot) == 0 {
		return snapshot, fmt.Errorf("no indicators fetched: %w", firstErr)
	}

	if err := p.cache.Set(ctx, snapshotKey, snapshot, p.ttl); err != nil {
		log.Warn().Err(err).Msg("Market cache write failed")
	}

	log.Info().
		Int("indicators", len(snapshot)).
		Int("requested", len(p.series)).
		Msg("Market snapshot refreshed")

	return snapshot, nil
}
