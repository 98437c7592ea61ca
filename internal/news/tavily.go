package news

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	TavilyAPIURL = "https://api.tavily.com"
)

// creDomains restricts Tavily news search to trade and financial press.
var creDomains = []string{
	"globest.com",
	"bisnow.com",
	"multifamilydive.com",
	"multihousingnews.com",
	"connectcre.com",
	"wsj.com",
	"bloomberg.com",
	"reuters.com",
}

// TavilyClient provides news search via the Tavily API.
type TavilyClient struct {
	client *resty.Client
	apiKey string
}

// TavilySearchRequest represents a search request.
type TavilySearchRequest struct {
	Query          string
	SearchDepth    string // "basic" or "advanced"
	Topic          string // "general" or "news"
	Days           int
	MaxResults     int
	IncludeDomains []string
}

// TavilySearchResponse represents a search response.
type TavilySearchResponse struct {
	Query   string         `json:"query"`
	Results []TavilyResult `json:"results"`
}

// TavilyResult represents a single search result.
type TavilyResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Published string  `json:"published_date,omitempty"`
}

// NewTavilyClient creates a new Tavily client.
func NewTavilyClient(apiKey string) *TavilyClient {
	return NewTavilyClientWithURL(apiKey, TavilyAPIURL)
}

// NewTavilyClientWithURL creates a Tavily client against a custom base URL.
func NewTavilyClientWithURL(apiKey, baseURL string) *TavilyClient {
	return &TavilyClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetRetryCount(2),
		apiKey: apiKey,
	}
}

func (c *TavilyClient) Name() string { return "tavily" }

// Fetch searches recent news for the topic.
func (c *TavilyClient) Fetch(ctx context.Context, topic models.Topic, limit int) ([]models.NewsItem, error) {
	resp, err := c.Search(ctx, TavilySearchRequest{
		Query:          topic.DisplayName() + " commercial real estate",
		SearchDepth:    "basic",
		Topic:          "news",
		Days:           7,
		MaxResults:     limit,
		IncludeDomains: creDomains,
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, models.NewsItem{
			Title:       r.Title,
			Summary:     truncate(r.Content, 280),
			Source:      "Tavily",
			URL:         r.URL,
			PublishedAt: parsePublished(r.Published),
		})
	}
	return items, nil
}

// Search performs a search with custom parameters.
func (c *TavilyClient) Search(ctx context.Context, req TavilySearchRequest) (*TavilySearchResponse, error) {
	body := map[string]interface{}{
		"api_key":      c.apiKey,
		"query":        req.Query,
		"search_depth": req.SearchDepth,
		"topic":        req.Topic,
		"max_results":  req.MaxResults,
	}

	if req.Days > 0 {
		body["days"] = req.Days
	}
	if len(req.IncludeDomains) > 0 {
		body["include_domains"] = req.IncludeDomains
	}

	log.Debug().
		Str("query", req.Query).
		Int("max_results", req.MaxResults).
		Msg("Tavily search")

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/search")

	if err != nil {
		return nil, fmt.Errorf("tavily search failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("tavily API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var result TavilySearchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse tavily response: %w", err)
	}

	log.Debug().
		Int("results", len(result.Results)).
		Msg("Tavily search complete")

	return &result, nil
}

func parsePublished(s string) time.Time {
	for _, layout := range []string{time.RFC1123, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
