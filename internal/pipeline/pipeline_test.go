package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/leeaandrob/crecontent/internal/content"
	"github.com/leeaandrob/crecontent/internal/llm"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/leeaandrob/crecontent/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCompleter struct {
	mu    sync.Mutex
	calls int
}

func (e *echoCompleter) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return &llm.ChatResponse{Content: "Generated insight.\n\nWhere do rates go next?\n\n" + models.Disclaimer}, nil
}

type staticMarket struct {
	snap models.MarketContext
	err  error
}

func (s staticMarket) Snapshot(ctx context.Context) (models.MarketContext, error) {
	return s.snap, s.err
}

func newPipeline(t *testing.T, apiKey string, market MarketSource) (*Pipeline, *storage.MemoryStore, *echoCompleter) {
	t.Helper()
	echo := &echoCompleter{}
	resolver := content.NewResolver(content.DefaultRegistry(), func(string) content.Completer { return echo }, content.DefaultGeneratorConfig())
	store := storage.NewMemoryStore()
	p := New(resolver, store, market, nil, Config{APIKey: apiKey, LongArticleDay: time.Tuesday, Seed: 42})
	return p, store, echo
}

func TestGenerateTemplateOnly(t *testing.T) {
	market := staticMarket{snap: models.MarketContext{"FEDFUNDS": {Name: "Federal Funds Rate", Value: 5.25, Date: "2024-08-01"}}}
	p, store, echo := newPipeline(t, "", market)

	piece, err := p.Generate(context.Background(), models.ContentTypeShort, models.TopicInterestRates)
	require.NoError(t, err)

	assert.Equal(t, 0, echo.calls)
	assert.Equal(t, "Daily Insight: Interest rate impact on CRE", piece.Title)
	assert.Equal(t, string(content.RouteTemplateOnly), piece.Route)
	assert.False(t, piece.FellBack)
	assert.Equal(t, models.StatusQueued, piece.Status)
	assert.Equal(t, "linkedin", piece.Platform)
	assert.Contains(t, piece.Content, "5.25")
	assert.Equal(t, "At what rate level do you see transaction volume meaningfully returning?", piece.EngagementHook)
	assert.Greater(t, piece.WordCount, 50)

	events, err := store.GetRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventContentGenerated, events[0].Type)
	assert.Equal(t, "template_only", events[0].Data["route"])
}

func TestGenerateWithAI(t *testing.T) {
	p, _, echo := newPipeline(t, "sk-test", nil)

	piece, err := p.Generate(context.Background(), models.ContentTypeShort, models.TopicCRETechnology)
	require.NoError(t, err)
	assert.Equal(t, 1, echo.calls)
	assert.Equal(t, string(content.RouteAIAttempted), piece.Route)
	assert.Equal(t, "Where do rates go next?", piece.EngagementHook)
}

type failCompleter struct{}

func (failCompleter) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("upstream unavailable")
}

func TestAIFailureNeverQueuesDiagnostic(t *testing.T) {
	resolver := content.NewResolver(content.DefaultRegistry(), func(string) content.Completer { return failCompleter{} }, content.DefaultGeneratorConfig())
	p := New(resolver, storage.NewMemoryStore(), nil, nil, Config{APIKey: "sk", LongArticleDay: time.Tuesday, Seed: 3})

	tuesday := time.Date(2024, 8, 6, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		piece, err := p.GenerateDaily(context.Background(), tuesday)
		require.NoError(t, err)
		assert.True(t, piece.FellBack)
		assert.NotEqual(t, content.MissingTemplateText(piece.Type, piece.Topic), piece.Content, "topic %s", piece.Topic)
		assert.NotContains(t, piece.Content, "no template registered")
	}
}

func TestGenerateMarketFailureDegrades(t *testing.T) {
	p, _, _ := newPipeline(t, "", staticMarket{err: errors.New("fred down")})

	piece, err := p.Generate(context.Background(), models.ContentTypeShort, models.TopicInterestRates)
	require.NoError(t, err)
	assert.Contains(t, piece.Content, content.MarketDataSentinel)
}

func TestGenerateRotationWithoutCredential(t *testing.T) {
	p, _, _ := newPipeline(t, "", nil)
	registry := content.DefaultRegistry()

	for i := 0; i < 10; i++ {
		piece, err := p.Generate(context.Background(), models.ContentTypeLong, "")
		require.NoError(t, err)
		assert.True(t, registry.Has(models.ContentTypeLong, piece.Topic), "topic %s has no template", piece.Topic)
	}
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	p, _, _ := newPipeline(t, "", nil)
	_, err := p.Generate(context.Background(), models.ContentType("thread"), models.TopicMultifamily)
	assert.True(t, errors.Is(err, models.ErrUnknownContentType))
}

func TestGenerateDaily(t *testing.T) {
	p, _, _ := newPipeline(t, "", nil)

	tuesday := time.Date(2024, 8, 6, 9, 0, 0, 0, time.UTC)
	piece, err := p.GenerateDaily(context.Background(), tuesday)
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeLong, piece.Type)
	assert.Equal(t, "What are your thoughts on these market dynamics?", piece.EngagementHook)

	piece, err = p.GenerateDaily(context.Background(), tuesday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeShort, piece.Type)
}

func TestGenerateWeek(t *testing.T) {
	p, store, echo := newPipeline(t, "sk-test", nil)

	pieces, err := p.GenerateWeek(context.Background())
	require.NoError(t, err)
	require.Len(t, pieces, 7)
	assert.Equal(t, 7, echo.calls)

	longs := 0
	topics := make(map[models.Topic]bool)
	for _, piece := range pieces {
		if piece.Type == models.ContentTypeLong {
			longs++
		}
		topics[piece.Topic] = true
	}
	assert.Equal(t, 3, longs)
	assert.Len(t, topics, 7)

	assert.Equal(t, models.ContentTypeLong, pieces[0].Type)
	assert.Equal(t, models.ContentTypeShort, pieces[1].Type)
	assert.Equal(t, models.ContentTypeLong, pieces[3].Type)

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, stats.Queued)
}

type longFailStore struct {
	*storage.MemoryStore
}

func (s longFailStore) SaveContent(ctx context.Context, piece *models.ContentPiece) error {
	if piece.Type == models.ContentTypeLong {
		return errors.New("disk full")
	}
	return s.MemoryStore.SaveContent(ctx, piece)
}

func TestGenerateWeekKeepsDaySlots(t *testing.T) {
	resolver := content.NewResolver(content.DefaultRegistry(), nil, content.DefaultGeneratorConfig())
	p := New(resolver, longFailStore{storage.NewMemoryStore()}, nil, nil, Config{Seed: 9})

	pieces, err := p.GenerateWeek(context.Background())
	require.Error(t, err)
	require.Len(t, pieces, 7)

	for i, piece := range pieces {
		if i%3 == 0 {
			assert.Nil(t, piece, "day %d", i)
			continue
		}
		require.NotNil(t, piece, "day %d", i)
		assert.Equal(t, models.ContentTypeShort, piece.Type)
	}
}

func TestPrepareWeekendAndReview(t *testing.T) {
	p, _, _ := newPipeline(t, "", nil)

	pieces, err := p.PrepareWeekend(context.Background())
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	for _, piece := range pieces {
		assert.Equal(t, models.ContentTypeShort, piece.Type)
	}
	assert.NotEqual(t, pieces[0].Topic, pieces[1].Topic)

	queued, err := p.ReviewQueue(context.Background())
	require.NoError(t, err)
	assert.Len(t, queued, 2)
}

func TestSetStatus(t *testing.T) {
	p, store, _ := newPipeline(t, "", nil)
	ctx := context.Background()

	piece, err := p.Generate(ctx, models.ContentTypeShort, models.TopicMultifamily)
	require.NoError(t, err)

	_, err = p.SetStatus(ctx, piece.ID, models.StatusPosted)
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))

	updated, err := p.SetStatus(ctx, piece.ID, models.StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, updated.Status)

	updated, err = p.SetStatus(ctx, piece.ID, models.StatusPosted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPosted, updated.Status)

	stored, err := store.GetContentByID(ctx, piece.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPosted, stored.Status)

	events, err := store.GetRecentEvents(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusChanged, events[0].Type)
}

func TestSelectTopic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := []models.Topic{models.TopicMultifamily, models.TopicInterestRates, models.TopicDebtMarkets}

	t.Run("avoids recent", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			got := SelectTopic(candidates, []models.Topic{models.TopicMultifamily, models.TopicDebtMarkets}, rng)
			assert.Equal(t, models.TopicInterestRates, got)
		}
	})

	t.Run("all used", func(t *testing.T) {
		got := SelectTopic(candidates, candidates, rng)
		assert.Contains(t, candidates, got)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Equal(t, models.Topic(""), SelectTopic(nil, nil, rng))
	})
}

func TestEngagementHook(t *testing.T) {
	tests := []struct {
		name string
		ct   models.ContentType
		text string
		want string
	}{
		{name: "first question", ct: models.ContentTypeShort, text: "Intro.\n\nIs this the bottom?\nAnother?", want: "Is this the bottom?"},
		{name: "skips bold lines", ct: models.ContentTypeShort, text: "**Are rates peaking?**\nWhat now?", want: "What now?"},
		{name: "default", ct: models.ContentTypeShort, text: "No questions here.", want: defaultShortHook},
		{name: "long", ct: models.ContentTypeLong, text: "Why?", want: longHook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EngagementHook(tt.ct, tt.text))
		})
	}
}
