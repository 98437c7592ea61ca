package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Observation is the latest reading of a single market indicator.
type Observation struct {
	Name   string  `bson:"name" json:"name"`
	Value  float64 `bson:"value" json:"value"`
	Date   string  `bson:"date" json:"date"`
	Source string  `bson:"source,omitempty" json:"source,omitempty"`
}

// MarketContext maps an indicator id (e.g. FEDFUNDS) to its latest observation.
type MarketContext map[string]Observation

// Digest renders the context as one line per indicator, sorted by indicator id.
// An empty context renders as an empty string.
func (m MarketContext) Digest() string {
	if len(m) == 0 {
		return ""
	}

	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for i, id := range ids {
		obs := m[id]
		if i > 0 {
			b.WriteString("\n")
		}
		name := obs.Name
		if name == "" {
			name = id
		}
		b.WriteString(fmt.Sprintf("- %s (%s): %s", name, id, FormatValue(obs.Value)))
		if obs.Date != "" {
			b.WriteString(fmt.Sprintf(" as of %s", obs.Date))
		}
		if obs.Source != "" {
			b.WriteString(fmt.Sprintf(" [%s]", obs.Source))
		}
	}
	return b.String()
}

// FormatValue prints an indicator value in its shortest exact form (5.25, not 5.250000).
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewsItem is a headline used as secondary context for generation.
type NewsItem struct {
	Title       string    `bson:"title" json:"title"`
	Summary     string    `bson:"summary" json:"summary"`
	Source      string    `bson:"source" json:"source"`
	URL         string    `bson:"url,omitempty" json:"url,omitempty"`
	PublishedAt time.Time `bson:"published_at" json:"published_at"`
}

// DigestNews renders news items as plain-text bullet lines.
func DigestNews(items []NewsItem) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + item.Title)

		var meta []string
		if item.Source != "" {
			meta = append(meta, item.Source)
		}
		if !item.PublishedAt.IsZero() {
			meta = append(meta, item.PublishedAt.Format("2006-01-02"))
		}
		if len(meta) > 0 {
			b.WriteString(" (" + strings.Join(meta, ", ") + ")")
		}
		if item.Summary != "" {
			b.WriteString(": " + item.Summary)
		}
	}
	return b.String()
}
