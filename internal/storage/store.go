// Package storage persists the content queue and the pipeline event log.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a content piece does not exist.
var ErrNotFound = errors.New("not found")

// Stats holds queue statistics.
type Stats struct {
	TotalContent  int64 `json:"total_content"`
	TodayContent  int64 `json:"today_content"`
	Queued        int64 `json:"queued"`
	Reviewed      int64 `json:"reviewed"`
	Posted        int64 `json:"posted"`
	Rejected      int64 `json:"rejected"`
	FallbackCount int64 `json:"fallback_count"`
	TotalEvents   int64 `json:"total_events"`
}

// Store provides access to the MongoDB collections.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	content *mongo.Collection
	events  *mongo.Collection
}

// NewStore creates a new storage connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			log.Warn().Err(derr).Msg("Failed to disconnect from MongoDB")
		}
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	log.Info().Str("db", dbName).Msg("Connected to MongoDB")

	store := &Store{
		client:  client,
		db:      db,
		content: db.Collection("content"),
		events:  db.Collection("pipeline_events"),
	}

	if err := store.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create some indexes")
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) createIndexes(ctx context.Context) error {
	contentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "topic", Value: 1}}},
	}
	if _, err := s.content.Indexes().CreateMany(ctx, contentIndexes); err != nil {
		log.Warn().Err(err).Msg("Failed to create content indexes")
	}

	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	}
	if _, err := s.events.Indexes().CreateMany(ctx, eventIndexes); err != nil {
		log.Warn().Err(err).Msg("Failed to create event indexes")
	}

	return nil
}

// ============================================================================
// CONTENT OPERATIONS
// ============================================================================

// SaveContent inserts a new piece and assigns its ID.
func (s *Store) SaveContent(ctx context.Context, piece *models.ContentPiece) error {
	now := time.Now()
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

	_, err := s.content.InsertOne(ctx, piece)
	return err
}

// GetContentByID returns a piece by its MongoDB ID.
func (s *Store) GetContentByID(ctx context.Context, id primitive.ObjectID) (*models.ContentPiece, error) {
	var piece models.ContentPiece
	err := s.content.FindOne(ctx, bson.M{"_id": id}).Decode(&piece)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &piece, nil
}

// GetRecentContent returns the newest pieces.
func (s *Store) GetRecentContent(ctx context.Context, limit int) ([]models.ContentPiece, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return s.findContent(ctx, bson.M{}, opts)
}

// GetContentByStatus returns pieces in a given status, newest first.
func (s *Store) GetContentByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]models.ContentPiece, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return s.findContent(ctx, bson.M{"status": status}, opts)
}

// UpdateContentStatus sets the status of a piece.
func (s *Store) UpdateContentStatus(ctx context.Context, id primitive.ObjectID, status models.ContentStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	res, err := s.content.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentTopics returns the topics of the last n pieces, newest first.
func (s *Store) RecentTopics(ctx context.Context, n int) ([]models.Topic, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(n)).
		SetProjection(bson.M{"topic": 1})

	pieces, err := s.findContent(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	topics := make([]models.Topic, len(pieces))
	for i, p := range pieces {
		topics[i] = p.Topic
	}
	return topics, nil
}

func (s *Store) findContent(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.ContentPiece, error) {
	cursor, err := s.content.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pieces []models.ContentPiece
	if err := cursor.All(ctx, &pieces); err != nil {
		return nil, err
	}
	return pieces, nil
}

// ============================================================================
// EVENT OPERATIONS
// ============================================================================

// LogEvent appends an event to the pipeline log.
func (s *Store) LogEvent(ctx context.Context, eventType string, data map[string]interface{}) error {
	_, err := s.events.InsertOne(ctx, models.PipelineEvent{
		ID:        primitive.NewObjectID(),
		Type:      eventType,
		Data:      data,
		CreatedAt: time.Now(),
	})
	return err
}

// GetRecentEvents returns the newest events.
func (s *Store) GetRecentEvents(ctx context.Context, limit int) ([]models.PipelineEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.events.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.PipelineEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ============================================================================
// STATS OPERATIONS
// ============================================================================

// GetStats returns queue statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		dst    *int64
		coll   *mongo.Collection
		filter bson.M
	}{
		{&stats.TotalContent, s.content, bson.M{}},
		{&stats.TodayContent, s.content, bson.M{"created_at": bson.M{"$gte": startOfDay(time.Now())}}},
		{&stats.Queued, s.content, bson.M{"status": models.StatusQueued}},
		{&stats.Reviewed, s.content, bson.M{"status": models.StatusReviewed}},
		{&stats.Posted, s.content, bson.M{"status": models.StatusPosted}},
		{&stats.Rejected, s.content, bson.M{"status": models.StatusRejected}},
		{&stats.FallbackCount, s.content, bson.M{"fell_back": true}},
		{&stats.TotalEvents, s.events, bson.M{}},
	}

	for _, c := range counts {
		n, err := c.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	return stats, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
