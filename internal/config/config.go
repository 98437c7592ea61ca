// Package config provides configuration management for the CRE content engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Chat model settings
	OpenAIAPIKey   string
	OpenAIEndpoint string
	OpenAIModel    string
	Temperature    float64
	LLMTimeout     time.Duration
	ShortMaxTokens int
	LongMaxTokens  int

	// Market data settings
	FREDAPIKey     string
	FREDSeries     []string
	MarketCacheTTL time.Duration
	RedisURL       string

	// News settings
	TavilyAPIKey string
	ExaAPIKey    string
	NewsFeeds    []string
	MaxNewsItems int

	// Templates
	TemplatesFile string

	// MongoDB settings
	MongoURI string
	MongoDB  string

	// Scheduler settings
	LongArticleDay    time.Weekday
	SchedulerTimezone string
	EnableScheduler   bool

	// Server settings
	Platform string
	HTTPAddr string
	Debug    bool
}

// DefaultFREDSeries are the indicators pulled when FRED_SERIES is unset.
var DefaultFREDSeries = []string{
	"FEDFUNDS", "GS10", "GS5", "MORTGAGE30US", "UNRATE", "CPIAUCSL", "HOUST", "PERMIT",
}

// DefaultNewsFeeds are the RSS feeds read when NEWS_FEEDS is unset.
var DefaultNewsFeeds = []string{
	"https://www.multifamilydive.com/feeds/news/",
	"https://www.globest.com/feed/",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	longDay, err := parseWeekday(getEnv("LONG_ARTICLE_DAY", "tuesday"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		// Chat model
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIEndpoint: getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4"),
		Temperature:    getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		ShortMaxTokens: getEnvInt("SHORT_MAX_TOKENS", 500),
		LongMaxTokens:  getEnvInt("LONG_MAX_TOKENS", 2000),

		// Market data
		FREDAPIKey:     getEnv("FRED_API_KEY", ""),
		FREDSeries:     getEnvList("FRED_SERIES", DefaultFREDSeries),
		MarketCacheTTL: getEnvDuration("MARKET_CACHE_TTL", time.Hour),
		RedisURL:       getEnv("REDIS_URL", ""),

		// News
		TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),
		ExaAPIKey:    getEnv("EXA_API_KEY", ""),
		NewsFeeds:    getEnvList("NEWS_FEEDS", DefaultNewsFeeds),
		MaxNewsItems: getEnvInt("MAX_NEWS_ITEMS", 5),

		TemplatesFile: getEnv("TEMPLATES_FILE", ""),

		// MongoDB
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "crecontent"),

		// Scheduler
		LongArticleDay:    longDay,
		SchedulerTimezone: getEnv("SCHEDULER_TIMEZONE", "America/New_York"),
		EnableScheduler:   getEnvBool("ENABLE_SCHEDULER", true),

		// Server
		Platform: getEnv("PLATFORM", "linkedin"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Debug:    getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

// Validate rejects impossible values and warns about missing optional keys.
func (c *Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.Temperature)
	}
	if c.ShortMaxTokens <= 0 || c.LongMaxTokens <= 0 {
		return fmt.Errorf("token budgets must be positive (short=%d, long=%d)", c.ShortMaxTokens, c.LongMaxTokens)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout)
	}
	if _, err := time.LoadLocation(c.SchedulerTimezone); err != nil {
		return fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}

	if c.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, content will be rendered from templates only")
	}
	if c.FREDAPIKey == "" {
		log.Warn().Msg("FRED_API_KEY not set, market data will be unavailable")
	}
	return nil
}

// Location returns the scheduler timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name || strings.ToLower(d.String()[:3]) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid LONG_ARTICLE_DAY %q", s)
}
