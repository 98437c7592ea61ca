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
	ExaAPIURL = "https://api.exa.ai"
)

// ExaClient provides semantic news search via the Exa API.
type ExaClient struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
}

type exaSearchRequest struct {
	Query            string       `json:"query"`
	Type             string       `json:"type,omitempty"` // "keyword", "neural", "auto"
	NumResults       int          `json:"numResults,omitempty"`
	StartPublishDate string       `json:"startPublishedDate,omitempty"`
	IncludeDomains   []string     `json:"includeDomains,omitempty"`
	Category         string       `json:"category,omitempty"`
	Contents         *exaContents `json:"contents,omitempty"`
}

type exaContents struct {
	Summary *exaSummaryOptions `json:"summary,omitempty"`
}

type exaSummaryOptions struct {
	Query string `json:"query,omitempty"`
}

// ExaSearchResponse represents a search response.
type ExaSearchResponse struct {
	Results []ExaResult `json:"results"`
}

// ExaResult represents a single search result.
type ExaResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

// NewExaClient creates a new Exa client.
func NewExaClient(apiKey string) *ExaClient {
	return NewExaClientWithURL(apiKey, ExaAPIURL)
}

// NewExaClientWithURL creates an Exa client against a custom base URL.
func NewExaClientWithURL(apiKey, baseURL string) *ExaClient {
	return &ExaClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetRetryCount(2),
		apiKey: apiKey,
		now:    time.Now,
	}
}

func (c *ExaClient) Name() string { return "exa" }

// Fetch runs a news-category search for the topic over the last week.
func (c *ExaClient) Fetch(ctx context.Context, topic models.Topic, limit int) ([]models.NewsItem, error) {
	query := topic.DisplayName() + " commercial real estate"
	resp, err := c.search(ctx, exaSearchRequest{
		Query:            query,
		Type:             "neural",
		NumResults:       limit,
		Category:         "news",
		StartPublishDate: c.now().AddDate(0, 0, -7).Format("2006-01-02"),
		IncludeDomains:   creDomains,
		Contents:         &exaContents{Summary: &exaSummaryOptions{Query: query}},
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		summary := r.Summary
		if summary == "" && len(r.Highlights) > 0 {
			summary = r.Highlights[0]
		}
		items = append(items, models.NewsItem{
			Title:       r.Title,
			Summary:     truncate(cleanHTML(summary), 280),
			Source:      "Exa",
			URL:         r.URL,
			PublishedAt: parsePublished(r.PublishedDate),
		})
	}
	return items, nil
}

func (c *ExaClient) search(ctx context.Context, req exaSearchRequest) (*ExaSearchResponse, error) {
	log.Debug().
		Str("query", req.Query).
		Int("num_results", req.NumResults).
		Msg("Exa search")

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetBody(req).
		Post("/search")

	if err != nil {
		return nil, fmt.Errorf("exa search failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("exa API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var result ExaSearchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse exa response: %w", err)
	}

	return &result, nil
}
