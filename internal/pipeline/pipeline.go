// Package pipeline turns resolved content into queued pieces: it picks topics,
// gathers market and news context, and records every generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/leeaandrob/crecontent/internal/content"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// ErrNoTopics is returned when no topic can serve a request.
var ErrNoTopics = errors.New("no topic available")

// RecentWindow is how many recent pieces topic rotation avoids repeating.
const RecentWindow = 7

// Store persists pieces and events.
type Store interface {
	SaveContent(ctx context.Context, piece *models.ContentPiece) error
	GetContentByID(ctx context.Context, id primitive.ObjectID) (*models.ContentPiece, error)
	GetContentByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]models.ContentPiece, error)
	UpdateContentStatus(ctx context.Context, id primitive.ObjectID, status models.ContentStatus) error
	RecentTopics(ctx context.Context, n int) ([]models.Topic, error)
	LogEvent(ctx context.Context, eventType string, data map[string]interface{}) error
}

// MarketSource provides the current market snapshot.
type MarketSource interface {
	Snapshot(ctx context.Context) (models.MarketContext, error)
}

// NewsSource provides recent headlines for a topic.
type NewsSource interface {
	Headlines(ctx context.Context, topic models.Topic) []models.NewsItem
}

// Config holds pipeline settings.
type Config struct {
	APIKey         string
	Platform       string
	LongArticleDay time.Weekday
	Seed           int64
}

// Pipeline generates and queues content.
type Pipeline struct {
	resolver *content.Resolver
	store    Store
	market   MarketSource
	news     NewsSource
	cfg      Config

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

// New creates a pipeline. market and news may be nil.
func New(resolver *content.Resolver, store Store, market MarketSource, news NewsSource, cfg Config) *Pipeline {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Platform == "" {
		cfg.Platform = "linkedin"
	}

	return &Pipeline{
		resolver: resolver,
		store:    store,
		market:   market,
		news:     news,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

// AIEnabled reports whether a credential is configured.
func (p *Pipeline) AIEnabled() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

// Candidates returns the topics eligible for ct. Without a credential only
// topics with a template qualify.
func (p *Pipeline) Candidates(ct models.ContentType) []models.Topic {
	if p.AIEnabled() {
		return models.AllTopics()
	}
	return p.resolver.Templates().Registry().Topics(ct)
}

// Generate resolves one piece, saves it as queued and logs the event.
// An empty topic selects one by rotation.
func (p *Pipeline) Generate(ctx context.Context, ct models.ContentType, topic models.Topic) (*models.ContentPiece, error) {
	if !ct.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownContentType, ct)
	}

	if topic == "" {
		recent, err := p.recentTopics(ctx)
		if err != nil {
			return nil, err
		}
		if topic = p.pick(ct, recent); topic == "" {
			return nil, fmt.Errorf("%w for %s content", ErrNoTopics, ct)
		}
	}

	return p.generate(ctx, ct, topic)
}

// Resolve gathers context and resolves content without queueing it.
func (p *Pipeline) Resolve(ctx context.Context, ct models.ContentType, topic models.Topic) content.Result {
	market, news := p.gather(ctx, topic)
	return p.resolver.Resolve(ctx, content.Request{
		Type:   ct,
		Topic:  topic,
		Market: market,
		News:   news,
		APIKey: p.cfg.APIKey,
	})
}

func (p *Pipeline) generate(ctx context.Context, ct models.ContentType, topic models.Topic) (*models.ContentPiece, error) {
	start := p.now()
	res := p.Resolve(ctx, ct, topic)
	piece := BuildPiece(ct, topic, res, p.cfg.Platform, p.now())

	if err := p.store.SaveContent(ctx, piece); err != nil {
		p.logEvent(ctx, models.EventGenerationError, map[string]interface{}{
			"type":  string(ct),
			"topic": string(topic),
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to save content: %w", err)
	}

	p.logEvent(ctx, models.EventContentGenerated, map[string]interface{}{
		"content_id": piece.ID.Hex(),
		"type":       string(ct),
		"topic":      string(topic),
		"route":      piece.Route,
		"fell_back":  piece.FellBack,
		"word_count": piece.WordCount,
	})

	log.Info().
		Str("id", piece.ID.Hex()).
		Str("type", string(ct)).
		Str("topic", string(topic)).
		Str("route", piece.Route).
		Bool("fell_back", piece.FellBack).
		Dur("took", p.now().Sub(start)).
		Msg("Content generated")

	return piece, nil
}

// GenerateDaily generates the day's piece: long-form on the configured
// weekday, short otherwise.
func (p *Pipeline) GenerateDaily(ctx context.Context, now time.Time) (*models.ContentPiece, error) {
	ct := models.ContentTypeShort
	if now.Weekday() == p.cfg.LongArticleDay {
		ct = models.ContentTypeLong
	}
	return p.Generate(ctx, ct, "")
}

// GenerateWeek produces seven pieces, long-form on days 0, 3 and 6. Topics
// are chosen up front so the parallel generations do not repeat each other.
// The result always has one slot per day; a failed day is nil and its error
// is joined into the returned error.
func (p *Pipeline) GenerateWeek(ctx context.Context) ([]*models.ContentPiece, error) {
	recent, err := p.recentTopics(ctx)
	if err != nil {
		return nil, err
	}

	type plan struct {
		ct    models.ContentType
		topic models.Topic
	}

	plans := make([]plan, 7)
	for i := range plans {
		ct := models.ContentTypeShort
		if i%3 == 0 {
			ct = models.ContentTypeLong
		}
		topic := p.pick(ct, recent)
		if topic == "" {
			return nil, fmt.Errorf("%w for %s content", ErrNoTopics, ct)
		}
		plans[i] = plan{ct: ct, topic: topic}
		recent = append([]models.Topic{topic}, recent...)
		if len(recent) > RecentWindow {
			recent = recent[:RecentWindow]
		}
	}

	pieces := make([]*models.ContentPiece, len(plans))
	errs := make([]error, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i, pl := range plans {
		i, pl := i, pl
		g.Go(func() error {
			pieces[i], errs[i] = p.generate(gctx, pl.ct, pl.topic)
			return nil
		})
	}
	g.Wait()

	generated := 0
	for _, piece := range pieces {
		if piece != nil {
			generated++
		}
	}

	log.Info().Int("generated", generated).Msg("Weekly content batch complete")
	return pieces, errors.Join(errs...)
}

// PrepareWeekend queues two short posts for the weekend.
func (p *Pipeline) PrepareWeekend(ctx context.Context) ([]*models.ContentPiece, error) {
	var pieces []*models.ContentPiece
	for i := 0; i < 2; i++ {
		piece, err := p.Generate(ctx, models.ContentTypeShort, "")
		if err != nil {
			return pieces, err
		}
		pieces = append(pieces, piece)
	}
	return pieces, nil
}

// ReviewQueue returns the queued pieces awaiting review.
func (p *Pipeline) ReviewQueue(ctx context.Context) ([]models.ContentPiece, error) {
	queued, err := p.store.GetContentByStatus(ctx, models.StatusQueued, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	log.Info().Int("queued", len(queued)).Msg("Content review queue")
	return queued, nil
}

// SetStatus moves a piece through the review lifecycle.
func (p *Pipeline) SetStatus(ctx context.Context, id primitive.ObjectID, status models.ContentStatus) (*models.ContentPiece, error) {
	piece, err := p.store.GetContentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !piece.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, piece.Status, status)
	}

	if err := p.store.UpdateContentStatus(ctx, id, status); err != nil {
		return nil, err
	}

	p.logEvent(ctx, models.EventStatusChanged, map[string]interface{}{
		"content_id": id.Hex(),
		"from":       string(piece.Status),
		"to":         string(status),
	})

	piece.Status = status
	return piece, nil
}

func (p *Pipeline) gather(ctx context.Context, topic models.Topic) (models.MarketContext, []models.NewsItem) {
	var (
		market models.MarketContext
		news   []models.NewsItem
	)

	if p.market != nil {
		snap, err := p.market.Snapshot(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Market data unavailable")
		}
		market = snap
	}

	if p.news != nil {
		news = p.news.Headlines(ctx, topic)
	}

	return market, news
}

func (p *Pipeline) recentTopics(ctx context.Context) ([]models.Topic, error) {
	recent, err := p.store.RecentTopics(ctx, RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent topics: %w", err)
	}
	return recent, nil
}

func (p *Pipeline) pick(ct models.ContentType, recent []models.Topic) models.Topic {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return SelectTopic(p.Candidates(ct), recent, p.rng)
}

func (p *Pipeline) logEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if err := p.store.LogEvent(ctx, eventType, data); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to log pipeline event")
	}
}
