package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leeaandrob/crecontent/internal/content"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/leeaandrob/crecontent/internal/pipeline"
	"github.com/leeaandrob/crecontent/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the read side of the content queue.
type Store interface {
	GetContentByID(ctx context.Context, id primitive.ObjectID) (*models.ContentPiece, error)
	GetRecentContent(ctx context.Context, limit int) ([]models.ContentPiece, error)
	GetContentByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]models.ContentPiece, error)
	GetRecentEvents(ctx context.Context, limit int) ([]models.PipelineEvent, error)
	GetStats(ctx context.Context) (*storage.Stats, error)
}

// Handlers holds the API handlers.
type Handlers struct {
	store    Store
	pipeline *pipeline.Pipeline
	resolver *content.Resolver
	apiKey   string
}

// NewHandlers creates new API handlers. apiKey is used by /resolve when the
// caller asks for AI generation.
func NewHandlers(store Store, p *pipeline.Pipeline, resolver *content.Resolver, apiKey string) *Handlers {
	return &Handlers{
		store:    store,
		pipeline: p,
		resolver: resolver,
		apiKey:   apiKey,
	}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func getLimit(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

func contentID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// ============================================================================
// GENERATION HANDLERS
// ============================================================================

type generateRequest struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// Generate resolves, queues and returns one piece.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ct, err := models.ParseContentType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var topic models.Topic
	if strings.TrimSpace(req.Topic) != "" {
		if topic, err = models.ParseTopic(req.Topic); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	piece, err := h.pipeline.Generate(r.Context(), ct, topic)
	if errors.Is(err, pipeline.ErrNoTopics) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate content")
		return
	}

	respondJSON(w, http.StatusCreated, piece)
}

type resolveRequest struct {
	Type   string               `json:"type"`
	Topic  string               `json:"topic"`
	Market models.MarketContext `json:"market,omitempty"`
	News   []models.NewsItem    `json:"news,omitempty"`
	UseAI  bool                 `json:"use_ai"`
}

type resolveResponse struct {
	Text           string        `json:"text"`
	Route          content.Route `json:"route"`
	FellBack       bool          `json:"fell_back"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
}

// Resolve runs one resolution with caller-supplied context. Nothing is stored.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ct, err := models.ParseContentType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	topic, err := models.ParseTopic(req.Topic)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	apiKey := ""
	if req.UseAI {
		apiKey = h.apiKey
	}

	res := h.resolver.Resolve(r.Context(), content.Request{
		Type:   ct,
		Topic:  topic,
		Market: req.Market,
		News:   req.News,
		APIKey: apiKey,
	})

	respondJSON(w, http.StatusOK, resolveResponse{
		Text:           res.Text,
		Route:          res.Route,
		FellBack:       res.FellBack,
		FallbackReason: res.Reason(),
	})
}

type topicView struct {
	Slug          models.Topic `json:"slug"`
	Name          string       `json:"name"`
	Themes        string       `json:"themes"`
	ShortTemplate bool         `json:"short_template"`
	LongTemplate  bool         `json:"long_template"`
}

// GetTopics lists the catalog with template coverage.
func (h *Handlers) GetTopics(w http.ResponseWriter, r *http.Request) {
	registry := h.resolver.Templates().Registry()

	topics := make([]topicView, 0, len(models.TopicCatalog))
	for _, t := range models.TopicCatalog {
		topics = append(topics, topicView{
			Slug:          t.Slug,
			Name:          t.Name,
			Themes:        t.Themes,
			ShortTemplate: registry.Has(models.ContentTypeShort, t.Slug),
			LongTemplate:  registry.Has(models.ContentTypeLong, t.Slug),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"topics": topics,
		"count":  len(topics),
	})
}

// ============================================================================
// CONTENT HANDLERS
// ============================================================================

// GetContent returns recent pieces, optionally filtered by ?status=.
func (h *Handlers) GetContent(w http.ResponseWriter, r *http.Request) {
	limit := getLimit(r, 20)

	var (
		pieces []models.ContentPiece
		err    error
	)
	if s := r.URL.Query().Get("status"); s != "" {
		status, perr := models.ParseContentStatus(s)
		if perr != nil {
			respondError(w, http.StatusBadRequest, perr.Error())
			return
		}
		pieces, err = h.store.GetContentByStatus(r.Context(), status, limit)
	} else {
		pieces, err = h.store.GetRecentContent(r.Context(), limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch content")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"content": pieces,
		"count":   len(pieces),
	})
}

// GetQueue returns pieces waiting for review.
func (h *Handlers) GetQueue(w http.ResponseWriter, r *http.Request) {
	pieces, err := h.store.GetContentByStatus(r.Context(), models.StatusQueued, getLimit(r, 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch queue")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"content": pieces,
		"count":   len(pieces),
	})
}

// GetContentByID returns a single piece.
func (h *Handlers) GetContentByID(w http.ResponseWriter, r *http.Request) {
	piece, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, piece)
}

// GetContentMarkdown returns a piece rendered as Markdown.
func (h *Handlers) GetContentMarkdown(w http.ResponseWriter, r *http.Request) {
	piece, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(piece.Markdown()))
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves a piece through the review lifecycle.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid content id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := models.ParseContentStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	piece, err := h.pipeline.SetStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "Content not found")
	case errors.Is(err, models.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, "Failed to update status")
	default:
		respondJSON(w, http.StatusOK, piece)
	}
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*models.ContentPiece, bool) {
	id, ok := contentID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid content id")
		return nil, false
	}

	piece, err := h.store.GetContentByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Content not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch content")
		return nil, false
	}
	return piece, true
}

// GetEvents returns the pipeline event log.
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.GetRecentEvents(r.Context(), getLimit(r, 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// ============================================================================
// STATS & HEALTH
// ============================================================================

// GetStats returns queue statistics.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// HealthCheck returns the health status.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"ai_enabled": h.pipeline.AIEnabled(),
		"templates":  h.resolver.Templates().Registry().Len(),
		"timestamp":  time.Now().UTC(),
	})
}
