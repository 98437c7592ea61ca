// Package app wires configuration into the content engine components shared
// by the service and the CLI.
package app

import (
	"context"

	"github.com/leeaandrob/crecontent/internal/config"
	"github.com/leeaandrob/crecontent/internal/content"
	"github.com/leeaandrob/crecontent/internal/llm"
	"github.com/leeaandrob/crecontent/internal/marketdata"
	"github.com/leeaandrob/crecontent/internal/news"
	"github.com/rs/zerolog/log"
)

// Resolver builds the template registry (with the optional overlay file) and
// the resolver backed by the OpenAI-compatible client.
func Resolver(cfg *config.Config) (*content.Resolver, error) {
	registry := content.DefaultRegistry()
	if cfg.TemplatesFile != "" {
		overlay, err := content.LoadRegistryFile(cfg.TemplatesFile, registry)
		if err != nil {
			return nil, err
		}
		registry = overlay
		log.Info().Str("file", cfg.TemplatesFile).Int("templates", registry.Len()).Msg("Template overlay loaded")
	}

	factory := content.OpenAIClientFactory(llm.Config{
		Endpoint: cfg.OpenAIEndpoint,
		Model:    cfg.OpenAIModel,
		Timeout:  cfg.LLMTimeout,
	})

	return content.NewResolver(registry, factory, GeneratorConfig(cfg)), nil
}

// GeneratorConfig maps the chat settings onto the generator.
func GeneratorConfig(cfg *config.Config) content.GeneratorConfig {
	return content.GeneratorConfig{
		Temperature:    float32(cfg.Temperature),
		ShortMaxTokens: cfg.ShortMaxTokens,
		LongMaxTokens:  cfg.LongMaxTokens,
		Timeout:        cfg.LLMTimeout,
	}
}

// Market builds the market data provider. Without a FRED key the provider
// returns empty snapshots. The returned close func releases the cache.
func Market(ctx context.Context, cfg *config.Config) (*marketdata.Provider, func()) {
	var source marketdata.Source
	if cfg.FREDAPIKey != "" {
		source = marketdata.NewFREDClient(marketdata.FREDConfig{APIKey: cfg.FREDAPIKey})
	}

	closeFn := func() {}
	var cache marketdata.Cache
	if cfg.RedisURL != "" {
		rc, err := marketdata.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-process market cache")
		} else {
			cache = rc
			closeFn = func() { rc.Close() }
			log.Info().Msg("Redis market cache connected")
		}
	}

	return marketdata.NewProvider(source, cfg.FREDSeries, cache, cfg.MarketCacheTTL), closeFn
}

// News builds the headline aggregator over the configured RSS feeds and the
// search APIs that have a key set.
func News(cfg *config.Config) *news.Aggregator {
	var sources []news.Source
	if len(cfg.NewsFeeds) > 0 {
		sources = append(sources, news.NewRSSSource(cfg.NewsFeeds))
	}
	if cfg.TavilyAPIKey != "" {
		sources = append(sources, news.NewTavilyClient(cfg.TavilyAPIKey))
	}
	if cfg.ExaAPIKey != "" {
		sources = append(sources, news.NewExaClient(cfg.ExaAPIKey))
	}
	return news.NewAggregator(cfg.MaxNewsItems, sources...)
}
