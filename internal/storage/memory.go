package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leeaandrob/crecontent/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps the queue and event log in process. It backs the CLI and
// tests and has the same method set as Store.
type MemoryStore struct {
	mu      sync.RWMutex
	content []models.ContentPiece
	events  []models.PipelineEvent
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) SaveContent(ctx context.Context, piece *models.ContentPiece) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if piece.ID.IsZero() {
		piece.ID = primitive.NewObjectID()
	}
	if piece.CreatedAt.IsZero() {
		piece.CreatedAt = now
	}
	piece.UpdatedAt = now
	if piece.Status == "" {
		piece.Status = models.StatusQueued
	}

	s.content = append(s.content, *piece)
	return nil
}

func (s *MemoryStore) GetContentByID(ctx context.Context, id primitive.ObjectID) (*models.ContentPiece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.content {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetRecentContent(ctx context.Context, limit int) ([]models.ContentPiece, error) {
	return s.filter(limit, func(models.ContentPiece) bool { return true }), nil
}

func (s *MemoryStore) GetContentByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]models.ContentPiece, error) {
	return s.filter(limit, func(p models.ContentPiece) bool { return p.Status == status }), nil
}

func (s *MemoryStore) UpdateContentStatus(ctx context.Context, id primitive.ObjectID, status models.ContentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.content {
		if s.content[i].ID == id {
			s.content[i].Status = status
			s.content[i].UpdatedAt = s.now()
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) RecentTopics(ctx context.Context, n int) ([]models.Topic, error) {
	pieces := s.filter(n, func(models.ContentPiece) bool { return true })
	topics := make([]models.Topic, len(pieces))
	for i, p := range pieces {
		topics[i] = p.Topic
	}
	return topics, nil
}

func (s *MemoryStore) LogEvent(ctx context.Context, eventType string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, models.PipelineEvent{
		ID:        primitive.NewObjectID(),
		Type:      eventType,
		Data:      data,
		CreatedAt: s.now(),
	})
	return nil
}

func (s *MemoryStore) GetRecentEvents(ctx context.Context, limit int) ([]models.PipelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PipelineEvent, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *MemoryStore) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalContent: int64(len(s.content)),
		TotalEvents:  int64(len(s.events)),
	}
	today := startOfDay(s.now())
	for _, p := range s.content {
		if !p.CreatedAt.Before(today) {
			stats.TodayContent++
		}
		if p.FellBack {
			stats.FallbackCount++
		}
		switch p.Status {
		case models.StatusQueued:
			stats.Queued++
		case models.StatusReviewed:
			stats.Reviewed++
		case models.StatusPosted:
			stats.Posted++
		case models.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// filter returns matching pieces newest first. Insertion order breaks ties.
func (s *MemoryStore) filter(limit int, keep func(models.ContentPiece) bool) []models.ContentPiece {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := make([]int, 0, len(s.content))
	for i, p := range s.content {
		if keep(p) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := s.content[idx[a]], s.content[idx[b]]
		if pa.CreatedAt.Equal(pb.CreatedAt) {
			return idx[a] > idx[b]
		}
		return pa.CreatedAt.After(pb.CreatedAt)
	})

	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}

	out := make([]models.ContentPiece, len(idx))
	for i, j := range idx {
		out[i] = s.content[j]
	}
	return out
}
