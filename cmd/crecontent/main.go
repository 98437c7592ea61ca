// crecontent generates daily CRE and multifamily social content and serves
// the review queue over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leeaandrob/crecontent/internal/api"
	"github.com/leeaandrob/crecontent/internal/app"
	"github.com/leeaandrob/crecontent/internal/config"
	"github.com/leeaandrob/crecontent/internal/pipeline"
	"github.com/leeaandrob/crecontent/internal/scheduler"
	"github.com/leeaandrob/crecontent/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("CRE content engine starting")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Initialize storage
	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer store.Close(ctx)

	// Templates and chat model
	resolver, err := app.Resolver(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}
	log.Info().
		Int("templates", resolver.Templates().Registry().Len()).
		Str("model", cfg.OpenAIModel).
		Bool("ai_enabled", cfg.OpenAIAPIKey != "").
		Msg("Content resolver initialized")

	// Generation context
	market, closeMarket := app.Market(ctx, cfg)
	defer closeMarket()
	headlines := app.News(cfg)

	p := pipeline.New(resolver, store, market, headlines, pipeline.Config{
		APIKey:         cfg.OpenAIAPIKey,
		Platform:       cfg.Platform,
		LongArticleDay: cfg.LongArticleDay,
	})
	log.Info().Str("long_article_day", cfg.LongArticleDay.String()).Msg("Content pipeline initialized")

	var sched *scheduler.Scheduler
	var jobs api.JobRunner
	if cfg.EnableScheduler {
		sched = scheduler.NewScheduler(p, market, scheduler.Options{Location: cfg.Location()})
		jobs = sched
	}

	apiServer := api.NewServer(api.NewHandlers(store, p, resolver, cfg.OpenAIAPIKey), jobs, market, cfg.HTTPAddr)

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start all services
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	if sched != nil {
		sched.Start()
	}

	log.Info().Str("api", cfg.HTTPAddr).Msg("CRE content engine running")

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown error")
	}

	log.Info().Msg("CRE content engine stopped")
}
