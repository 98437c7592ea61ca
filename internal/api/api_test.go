package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leeaandrob/crecontent/internal/content"
	"github.com/leeaandrob/crecontent/internal/llm"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/leeaandrob/crecontent/internal/pipeline"
	"github.com/leeaandrob/crecontent/internal/scheduler"
	"github.com/leeaandrob/crecontent/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubCompleter struct{}

func (stubCompleter) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "AI says hello."}, nil
}

type stubJobs struct{ ran []string }

func (s *stubJobs) JobStatus() []scheduler.JobStatus {
	return []scheduler.JobStatus{{Name: "daily-content", Type: scheduler.ScheduleDaily}}
}

func (s *stubJobs) RunJobNow(name string) error {
	if name != "daily-content" {
		return scheduler.ErrJobNotFound
	}
	s.ran = append(s.ran, name)
	return nil
}

type stubMarket struct{}

func (stubMarket) Refresh(ctx context.Context) (models.MarketContext, error) {
	return models.MarketContext{"FEDFUNDS": {Value: 5.25}}, nil
}

type testEnv struct {
	srv   *httptest.Server
	store *storage.MemoryStore
	jobs  *stubJobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	resolver := content.NewResolver(content.DefaultRegistry(), func(string) content.Completer { return stubCompleter{} }, content.DefaultGeneratorConfig())
	p := pipeline.New(resolver, store, nil, nil, pipeline.Config{LongArticleDay: time.Tuesday, Seed: 7})
	jobs := &stubJobs{}

	server := NewServer(NewHandlers(store, p, resolver, "sk-test"), jobs, stubMarket{}, ":0")
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: store, jobs: jobs}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestHealthAndTopics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	resp, body = env.do(t, http.MethodGet, "/api/topics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Topics []topicView `json:"topics"`
		Count  int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, len(models.TopicCatalog), out.Count)

	for _, tv := range out.Topics {
		if tv.Slug == models.TopicCRETechnology {
			assert.False(t, tv.ShortTemplate)
		}
		if tv.Slug == models.TopicInterestRates {
			assert.True(t, tv.ShortTemplate)
			assert.True(t, tv.LongTemplate)
		}
	}
}

func TestResolveEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("template path", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/resolve", map[string]interface{}{
			"type":   "short",
			"topic":  "interest-rates",
			"market": map[string]interface{}{"FEDFUNDS": map[string]interface{}{"name": "Federal Funds Rate", "value": 5.25, "date": "2024-08-01"}},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out resolveResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, content.RouteTemplateOnly, out.Route)
		assert.Contains(t, out.Text, "5.25")
		assert.True(t, strings.HasSuffix(out.Text, models.Disclaimer))
	})

	t.Run("ai path", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/resolve", map[string]interface{}{
			"type": "long", "topic": "debt-markets", "use_ai": true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out resolveResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, content.RouteAIAttempted, out.Route)
		assert.Equal(t, "AI says hello.", out.Text)
	})

	t.Run("unknown topic", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/resolve", map[string]interface{}{"type": "short", "topic": "crypto"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown type", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/resolve", map[string]interface{}{"type": "thread", "topic": "multifamily"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGenerateAndReviewFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/generate", map[string]string{"type": "short", "topic": "multifamily"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var piece models.ContentPiece
	require.NoError(t, json.Unmarshal(body, &piece))
	assert.Equal(t, models.StatusQueued, piece.Status)
	assert.Equal(t, models.TopicMultifamily, piece.Topic)
	id := piece.ID.Hex()

	resp, body = env.do(t, http.MethodGet, "/api/content/queue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":1`)

	resp, body = env.do(t, http.MethodGet, "/api/content/"+id+"/markdown", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "# Daily Insight: Multifamily market fundamentals"))

	resp, _ = env.do(t, http.MethodPost, "/api/content/"+id+"/status", map[string]string{"status": "posted"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/content/"+id+"/status", map[string]string{"status": "reviewed"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/content?status=reviewed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), id)

	resp, body = env.do(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), models.EventStatusChanged)
	assert.Contains(t, string(body), models.EventContentGenerated)

	resp, body = env.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"reviewed":1`)
}

func TestContentErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/content/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/content/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/content/"+primitive.NewObjectID().Hex()+"/status", map[string]string{"status": "reviewed"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/generate", map[string]string{"type": "short", "topic": "crypto"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/admin/jobs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "daily-content")

	resp, _ = env.do(t, http.MethodPost, "/api/admin/jobs/daily-content/run", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"daily-content"}, env.jobs.ran)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/jobs/unknown/run", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/admin/market/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"indicators":1`)
}
