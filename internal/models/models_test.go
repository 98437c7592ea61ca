package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	t.Run("known slug", func(t *testing.T) {
		topic, err := ParseTopic("  Interest-Rates ")
		require.NoError(t, err)
		assert.Equal(t, TopicInterestRates, topic)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := ParseTopic("crypto")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownTopic))
	})
}

func TestAllTopicsMatchesCatalog(t *testing.T) {
	topics := AllTopics()
	require.Len(t, topics, len(TopicCatalog))

	seen := make(map[Topic]bool)
	for _, topic := range topics {
		assert.False(t, seen[topic], "duplicate topic %s", topic)
		seen[topic] = true
		assert.NotEmpty(t, topic.DisplayName())
	}
}

func TestTopicDisplayNameFallsBackToSlug(t *testing.T) {
	assert.Equal(t, "Construction cost impacts", TopicConstructionCosts.DisplayName())
	assert.Equal(t, "not-a-topic", Topic("not-a-topic").DisplayName())
}

func TestParseContentType(t *testing.T) {
	tests := []struct {
		input   string
		want    ContentType
		wantErr bool
	}{
		{input: "short", want: ContentTypeShort},
		{input: "short_post", want: ContentTypeShort},
		{input: "LONG", want: ContentTypeLong},
		{input: "long_article", want: ContentTypeLong},
		{input: "thread", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseContentType(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownContentType))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWordRange(t *testing.T) {
	min, max := ContentTypeShort.WordRange()
	assert.Equal(t, 150, min)
	assert.Equal(t, 200, max)

	min, max = ContentTypeLong.WordRange()
	assert.Equal(t, 800, min)
	assert.Equal(t, 1200, max)
}

func TestMarketContextDigest(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", MarketContext{}.Digest())
		assert.Equal(t, "", MarketContext(nil).Digest())
	})

	t.Run("sorted by indicator id", func(t *testing.T) {
		ctx := MarketContext{
			"MORTGAGE30US": {Name: "30-Year Fixed Mortgage Rate", Value: 6.81, Date: "2025-08-05"},
			"FEDFUNDS":     {Name: "Federal Funds Rate", Value: 5.25, Date: "2024-08-01", Source: "FRED"},
		}

		lines := strings.Split(ctx.Digest(), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "- Federal Funds Rate (FEDFUNDS): 5.25 as of 2024-08-01 [FRED]", lines[0])
		assert.Equal(t, "- 30-Year Fixed Mortgage Rate (MORTGAGE30US): 6.81 as of 2025-08-05", lines[1])
	})

	t.Run("name defaults to id", func(t *testing.T) {
		ctx := MarketContext{"GS10": {Value: 4.2}}
		assert.Equal(t, "- GS10 (GS10): 4.2", ctx.Digest())
	})
}

func TestDigestNews(t *testing.T) {
	items := []NewsItem{
		{
			Title:       "Apartment starts slow",
			Summary:     "Permits fell for a third month.",
			Source:      "Multifamily Dive",
			PublishedAt: time.Date(2025, 8, 4, 10, 0, 0, 0, time.UTC),
		},
		{Title: "Cap rates hold"},
	}

	got := DigestNews(items)
	assert.Equal(t, "- Apartment starts slow (Multifamily Dive, 2025-08-04): Permits fell for a third month.\n- Cap rates hold", got)
	assert.Equal(t, "", DigestNews(nil))
}

func TestContentPieceMarkdown(t *testing.T) {
	piece := &ContentPiece{
		Title:     "Daily Insight: Interest rate impact on CRE",
		Content:   "Body text",
		Type:      ContentTypeShort,
		TopicName: "Interest rate impact on CRE",
		Status:    StatusQueued,
		CreatedAt: time.Date(2025, 8, 5, 9, 0, 0, 0, time.UTC),
	}

	md := piece.Markdown()
	assert.True(t, strings.HasPrefix(md, "# Daily Insight: Interest rate impact on CRE\n\n"))
	assert.Contains(t, md, "**Type:** short\n")
	assert.Contains(t, md, "**Created:** 2025-08-05 09:00:00\n")
	assert.Contains(t, md, "**Status:** queued\n")
	assert.True(t, strings.HasSuffix(md, "---\n\nBody text\n"))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusQueued.CanTransitionTo(StatusReviewed))
	assert.True(t, StatusQueued.CanTransitionTo(StatusRejected))
	assert.True(t, StatusReviewed.CanTransitionTo(StatusPosted))
	assert.False(t, StatusQueued.CanTransitionTo(StatusPosted))
	assert.False(t, StatusPosted.CanTransitionTo(StatusQueued))
	assert.False(t, StatusRejected.CanTransitionTo(StatusReviewed))
}

func TestParseContentStatus(t *testing.T) {
	st, err := ParseContentStatus("Posted")
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, st)

	_, err = ParseContentStatus("archived")
	assert.Error(t, err)
}
