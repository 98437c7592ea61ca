package news

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Multifamily Dive</title>
  <link>https://example.com</link>
  <description>News</description>
  <item>
    <title>Apartment starts slow in Phoenix</title>
    <link>https://example.com/a</link>
    <description>&lt;p&gt;Multifamily permits fell for a &lt;b&gt;third&lt;/b&gt; month.&lt;/p&gt;</description>
    <pubDate>Mon, 05 Aug 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Office sublease space climbs</title>
    <link>https://example.com/b</link>
    <description>Downtown towers struggle.</description>
    <pubDate>Tue, 06 Aug 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Renters stay put as apartment demand holds</title>
    <link>https://example.com/c</link>
    <description>Retention is high.</description>
    <pubDate>Wed, 07 Aug 2024 10:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestRSSSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	src := NewRSSSource([]string{srv.URL})
	items, err := src.Fetch(context.Background(), models.TopicMultifamily, 10)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "Renters stay put as apartment demand holds", items[0].Title)
	assert.Equal(t, "Apartment starts slow in Phoenix", items[1].Title)
	assert.Equal(t, "Multifamily permits fell for a third month.", items[1].Summary)
	assert.Equal(t, "Multifamily Dive", items[1].Source)
	assert.False(t, items[1].PublishedAt.IsZero())

	limited, err := src.Fetch(context.Background(), models.TopicMultifamily, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRSSSourceAllFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewRSSSource([]string{srv.URL}).Fetch(context.Background(), models.TopicMultifamily, 5)
	assert.Error(t, err)
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := strings.Repeat("a", 276) + "€€€€"
	got := truncate(s, 280)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 280)
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "short", truncate("short", 280))
}

func TestMatchesAnyWholeWords(t *testing.T) {
	tech := []string{"proptech", "technology", "ai", "software"}

	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{name: "standalone keyword", text: "How AI is changing leasing", keywords: tech, want: true},
		{name: "substring only", text: "Landlords said they maintain rents", keywords: tech, want: false},
		{name: "plural", text: "Renters stay put", keywords: []string{"renter"}, want: true},
		{name: "phrase", text: "Sun Belt deliveries peak", keywords: []string{"sun belt"}, want: true},
		{name: "hyphenated", text: "Value-add deals return", keywords: []string{"value-add"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesAny(tt.text, tt.keywords))
		})
	}
}

func TestCleanHTML(t *testing.T) {
	assert.Equal(t, "", cleanHTML(""))
	assert.Equal(t, "Cap rates rose 25 bps.", cleanHTML("<p>Cap rates <em>rose</em>\n 25 bps.</p>"))
}

func TestTavilyFetch(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"query":"q","results":[
			{"title":"Fed holds rates","url":"https://example.com/fed","content":"The Fed held rates steady.","score":0.9,"published_date":"Mon, 05 Aug 2024 10:00:00 GMT"}
		]}`))
	}))
	defer srv.Close()

	client := NewTavilyClientWithURL("tv-key", srv.URL)
	items, err := client.Fetch(context.Background(), models.TopicInterestRates, 3)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Fed holds rates", items[0].Title)
	assert.Equal(t, 2024, items[0].PublishedAt.Year())

	assert.Equal(t, "tv-key", body["api_key"])
	assert.Equal(t, "news", body["topic"])
	assert.Equal(t, "Interest rate impact on CRE commercial real estate", body["query"])
	assert.EqualValues(t, 3, body["max_results"])
}

func TestTavilyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTavilyClientWithURL("bad", srv.URL).Fetch(context.Background(), models.TopicInterestRates, 3)
	assert.Error(t, err)
}

func TestExaFetch(t *testing.T) {
	var (
		body   map[string]interface{}
		apiKey string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"Sun Belt deliveries peak","url":"https://example.com/sb","publishedDate":"2024-08-02T00:00:00Z","highlights":["Deliveries <b>peaked</b> in Q2."]}
		]}`))
	}))
	defer srv.Close()

	client := NewExaClientWithURL("exa-key", srv.URL)
	client.now = func() time.Time { return time.Date(2024, 8, 9, 12, 0, 0, 0, time.UTC) }

	items, err := client.Fetch(context.Background(), models.TopicSunBeltSupply, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "exa-key", apiKey)
	assert.Equal(t, "news", body["category"])
	assert.Equal(t, "2024-08-02", body["startPublishedDate"])
	assert.EqualValues(t, 2, body["numResults"])
	assert.Equal(t, "Deliveries peaked in Q2.", items[0].Summary)
	assert.Equal(t, "Exa", items[0].Source)
	assert.Equal(t, 2, items[0].PublishedAt.Day())
}

type fakeSource struct {
	name  string
	items []models.NewsItem
	err   error
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Fetch(ctx context.Context, topic models.Topic, limit int) ([]models.NewsItem, error) {
	return f.items, f.err
}

func TestAggregatorHeadlines(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 8, d, 0, 0, 0, 0, time.UTC) }

	agg := NewAggregator(3,
		fakeSource{name: "a", items: []models.NewsItem{
			{Title: "Fed holds rates", PublishedAt: day(5)},
			{Title: "Starts fall", PublishedAt: day(2)},
		}},
		fakeSource{name: "b", items: []models.NewsItem{
			{Title: "fed holds rates ", PublishedAt: day(6)},
			{Title: "Rents flat", PublishedAt: day(7)},
			{Title: "Old news", PublishedAt: day(1)},
		}},
		fakeSource{name: "broken", err: errors.New("down")},
	)

	items := agg.Headlines(context.Background(), models.TopicInterestRates)
	require.Len(t, items, 3)
	assert.Equal(t, "Rents flat", items[0].Title)
	assert.Contains(t, []string{"Fed holds rates", "fed holds rates "}, items[1].Title)
	assert.Equal(t, "Starts fall", items[2].Title)
}

func TestAggregatorNoSources(t *testing.T) {
	assert.Empty(t, NewAggregator(5).Headlines(context.Background(), models.TopicMultifamily))
}
