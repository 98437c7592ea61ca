package pipeline

import (
	"math/rand"
	"strings"
	"time"

	"github.com/leeaandrob/crecontent/internal/content"
	"github.com/leeaandrob/crecontent/internal/models"
)

const (
	defaultShortHook = "What are your thoughts on these market trends?"
	longHook         = "What are your thoughts on these market dynamics?"
)

// BuildPiece wraps a resolution result into a queue entry.
func BuildPiece(ct models.ContentType, topic models.Topic, res content.Result, platform string, now time.Time) *models.ContentPiece {
	name := topic.DisplayName()

	title := "Daily Insight: " + name
	if ct == models.ContentTypeLong {
		title = "Market Analysis: " + name
	}

	return &models.ContentPiece{
		Title:          title,
		Content:        res.Text,
		EngagementHook: EngagementHook(ct, res.Text),
		WordCount:      len(strings.Fields(res.Text)),
		Type:           ct,
		Topic:          topic,
		TopicName:      name,
		Platform:       platform,
		Route:          string(res.Route),
		FellBack:       res.FellBack,
		FallbackReason: res.Reason(),
		Status:         models.StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// EngagementHook returns the first question line of a short post.
func EngagementHook(ct models.ContentType, text string) string {
	if ct == models.ContentTypeLong {
		return longHook
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "?") && !strings.HasPrefix(line, "*") {
			return line
		}
	}
	return defaultShortHook
}

// SelectTopic picks uniformly among candidates not in recent. When every
// candidate was used recently it picks among all of them. It returns "" for
// no candidates.
func SelectTopic(candidates, recent []models.Topic, rng *rand.Rand) models.Topic {
	if len(candidates) == 0 {
		return ""
	}

	used := make(map[models.Topic]bool, len(recent))
	for _, t := range recent {
		used[t] = true
	}

	var fresh []models.Topic
	for _, t := range candidates {
		if !used[t] {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		fresh = candidates
	}
	return fresh[rng.Intn(len(fresh))]
}
