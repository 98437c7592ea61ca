package news

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Aggregator fans out to every source and merges the results.
type Aggregator struct {
	sources  []Source
	maxItems int
}

// NewAggregator creates an aggregator returning at most maxItems headlines.
func NewAggregator(maxItems int, sources ...Source) *Aggregator {
	if maxItems <= 0 {
		maxItems = 5
	}
	return &Aggregator{sources: sources, maxItems: maxItems}
}

// Headlines returns de-duplicated headlines for a topic, newest first.
// Source failures are logged and skipped.
func (a *Aggregator) Headlines(ctx context.Context, topic models.Topic) []models.NewsItem {
	var (
		mu  sync.Mutex
		all []models.NewsItem
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		src := src
		g.Go(func() error {
			items, err := src.Fetch(gctx, topic, a.maxItems)
			if err != nil {
				log.Warn().Err(err).Str("source", src.Name()).Str("topic", string(topic)).Msg("News source failed")
				return nil
			}
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	items := dedupe(all)
	sortByDate(items)
	if len(items) > a.maxItems {
		items = items[:a.maxItems]
	}
	return items
}

func dedupe(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Title))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func sortByDate(items []models.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}
