package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnknownContentType is returned for content types other than short or long.
var ErrUnknownContentType = errors.New("unknown content type")

// ContentType classifies output length.
type ContentType string

const (
	// ContentTypeShort is a 150-200 word social post.
	ContentTypeShort ContentType = "short"

	// ContentTypeLong is an 800-1200 word article.
	ContentTypeLong ContentType = "long"
)

// Disclaimer closes every short-form post.
const Disclaimer = "Views are my own; not investment advice."

// ParseContentType accepts short/long and the legacy short_post/long_article names.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "short_post", "post":
		return ContentTypeShort, nil
	case "long", "long_article", "article":
		return ContentTypeLong, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownContentType, s)
	}
}

// Valid reports whether c is one of the known content types.
func (c ContentType) Valid() bool {
	return c == ContentTypeShort || c == ContentTypeLong
}

// WordRange returns the target length band.
func (c ContentType) WordRange() (min, max int) {
	if c == ContentTypeLong {
		return 800, 1200
	}
	return 150, 200
}

// ContentStatus tracks a piece through the review queue.
type ContentStatus string

const (
	StatusQueued   ContentStatus = "queued"
	StatusReviewed ContentStatus = "reviewed"
	StatusPosted   ContentStatus = "posted"
	StatusRejected ContentStatus = "rejected"
)

// ParseContentStatus validates a status name.
func ParseContentStatus(s string) (ContentStatus, error) {
	switch st := ContentStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusQueued, StatusReviewed, StatusPosted, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// ErrInvalidTransition is returned for a status change the queue does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransitionTo reports whether a piece in status s may move to next.
// queued -> reviewed -> posted, with rejection allowed before posting.
func (s ContentStatus) CanTransitionTo(next ContentStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusReviewed || next == StatusRejected
	case StatusReviewed:
		return next == StatusPosted || next == StatusRejected
	default:
		return false
	}
}

// ContentPiece is a generated post or article waiting in the queue.
type ContentPiece struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Content
	Title          string `bson:"title" json:"title"`
	Content        string `bson:"content" json:"content"`
	EngagementHook string `bson:"engagement_hook" json:"engagement_hook"`
	WordCount      int    `bson:"word_count" json:"word_count"`

	// Classification
	Type      ContentType `bson:"type" json:"type"`
	Topic     Topic       `bson:"topic" json:"topic"`
	TopicName string      `bson:"topic_name" json:"topic_name"`
	Platform  string      `bson:"platform" json:"platform"`

	// How the text was produced
	Route          string `bson:"route" json:"route"`
	FellBack       bool   `bson:"fell_back" json:"fell_back"`
	FallbackReason string `bson:"fallback_reason,omitempty" json:"fallback_reason,omitempty"`

	// Queue
	Status ContentStatus `bson:"status" json:"status"`

	// Timing
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Markdown renders the piece with its metadata header.
func (p *ContentPiece) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", p.Title))
	b.WriteString(fmt.Sprintf("**Type:** %s\n", p.Type))
	b.WriteString(fmt.Sprintf("**Created:** %s\n", p.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("**Topics:** %s\n", p.TopicName))
	if p.Status != "" {
		b.WriteString(fmt.Sprintf("**Status:** %s\n", p.Status))
	}
	b.WriteString("\n---\n\n")
	b.WriteString(p.Content)
	if !strings.HasSuffix(p.Content, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// PipelineEvent is an entry in the generation audit log.
type PipelineEvent struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Type      string                 `bson:"type" json:"type"`
	Data      map[string]interface{} `bson:"data" json:"data"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}

// Event types written by the pipeline.
const (
	EventContentGenerated = "content_generated"
	EventGenerationError  = "generation_error"
	EventStatusChanged    = "status_changed"
)
