// Package news collects recent CRE headlines used as secondary generation context.
package news

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

// Source returns headlines relevant to a topic.
type Source interface {
	Name() string
	Fetch(ctx context.Context, topic models.Topic, limit int) ([]models.NewsItem, error)
}

// RSSSource reads a fixed list of RSS or Atom feeds.
type RSSSource struct {
	feeds  []string
	parser *gofeed.Parser
}

// NewRSSSource creates a source over the given feed URLs.
func NewRSSSource(feeds []string) *RSSSource {
	return &RSSSource{
		feeds:  feeds,
		parser: gofeed.NewParser(),
	}
}

func (s *RSSSource) Name() string { return "rss" }

// Fetch reads every feed and keeps items matching the topic keywords.
// A feed that fails is skipped; an error is returned only when all fail.
func (s *RSSSource) Fetch(ctx context.Context, topic models.Topic, limit int) ([]models.NewsItem, error) {
	keywords := topicKeywords(topic)

	var (
		items  []models.NewsItem
		failed int
		last   error
	)

	for _, url := range s.feeds {
		feedItems, err := s.fetchFeed(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("feed", url).Msg("Failed to read feed")
			failed++
			last = err
			continue
		}

		for _, item := range feedItems {
			if len(keywords) > 0 && !matchesAny(item.Title+" "+item.Summary, keywords) {
				continue
			}
			items = append(items, item)
		}
	}

	if failed > 0 && failed == len(s.feeds) {
		return nil, last
	}

	sortByDate(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, url string) ([]models.NewsItem, error) {
	feed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", url, err)
	}

	source := feed.Title
	if source == "" {
		source = url
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		n := models.NewsItem{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  source,
			Summary: truncate(cleanHTML(item.Description), 280),
		}
		if item.PublishedParsed != nil {
			n.PublishedAt = *item.PublishedParsed
		}
		items = append(items, n)
	}
	return items, nil
}

// cleanHTML strips HTML tags using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func topicKeywords(topic models.Topic) []string {
	info := models.GetTopic(topic)
	if info == nil {
		return nil
	}
	return info.Keywords
}

// matchesAny reports whether text contains any keyword as whole words. A
// trailing "s" or "es" on the last word still matches ("renters", "rents").
func matchesAny(text string, keywords []string) bool {
	words := " " + normalizeWords(text) + " "
	for _, kw := range keywords {
		kw = normalizeWords(kw)
		if kw == "" {
			continue
		}
		for _, suffix := range []string{"", "s", "es"} {
			if strings.Contains(words, " "+kw+suffix+" ") {
				return true
			}
		}
	}
	return false
}

// normalizeWords lowercases s and joins its letter/digit runs with single spaces.
func normalizeWords(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// truncate shortens s to at most maxLen bytes, cutting on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "..."
}
