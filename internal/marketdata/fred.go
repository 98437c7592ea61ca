// Package marketdata fetches macro indicators used as generation context.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// FREDAPIBase is the St. Louis Fed API root.
	FREDAPIBase = "https://api.stlouisfed.org/fred"

	// FREDRateLimit is requests per second.
	FREDRateLimit = 10

	// FREDSource labels observations fetched from FRED.
	FREDSource = "FRED"
)

// ErrNoObservation is returned when a series has no usable latest value.
var ErrNoObservation = errors.New("no observation available")

// SeriesNames maps FRED series ids to display names.
var SeriesNames = map[string]string{
	"FEDFUNDS":     "Federal Funds Rate",
	"GS10":         "10-Year Treasury Rate",
	"GS5":          "5-Year Treasury Rate",
	"MORTGAGE30US": "30-Year Fixed Mortgage Rate",
	"UNRATE":       "Unemployment Rate",
	"CPIAUCSL":     "Consumer Price Index",
	"HOUST":        "Housing Starts",
	"PERMIT":       "Building Permits",
}

// FREDConfig holds the configuration for the FRED client.
type FREDConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// FREDClient reads the latest observation of FRED series.
type FREDClient struct {
	http    *resty.Client
	apiKey  string
	limiter *rate.Limiter
}

// NewFREDClient creates a new FRED client.
func NewFREDClient(cfg FREDConfig) *FREDClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = FREDAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = FREDRateLimit
	}

	return &FREDClient{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Latest returns the most recent observation for a series.
func (c *FREDClient) Latest(ctx context.Context, seriesID string) (models.Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Observation{}, err
	}

	log.Debug().Str("series", seriesID).Msg("Fetching FRED observation")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_id":  seriesID,
			"api_key":    c.apiKey,
			"file_type":  "json",
			"limit":      "1",
			"sort_order": "desc",
		}).
		Get("/series/observations")

	if err != nil {
		return models.Observation{}, fmt.Errorf("failed to fetch %s: %w", seriesID, err)
	}

	if resp.StatusCode() != 200 {
		return models.Observation{}, fmt.Errorf("FRED API returned %d for %s", resp.StatusCode(), seriesID)
	}

	var result observationsResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return models.Observation{}, fmt.Errorf("failed to parse %s: %w", seriesID, err)
	}

	if len(result.Observations) == 0 {
		return models.Observation{}, fmt.Errorf("%s: %w", seriesID, ErrNoObservation)
	}

	latest := result.Observations[0]
	// FRED reports missing data as "."
	if latest.Value == "." || latest.Value == "" {
		return models.Observation{}, fmt.Errorf("%s: %w", seriesID, ErrNoObservation)
	}

	value, err := strconv.ParseFloat(latest.Value, 64)
	if err != nil {
		return models.Observation{}, fmt.Errorf("%s: invalid value %q: %w", seriesID, latest.Value, err)
	}

	name := SeriesNames[seriesID]
	if name == "" {
		name = seriesID
	}

	return models.Observation{
		Name:   name,
		Value:  value,
		Date:   latest.Date,
		Source: FREDSource,
	}, nil
}
