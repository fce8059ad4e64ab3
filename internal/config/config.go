package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // Required so TIMEZONE works on minimal images.

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	ModeDigest   = "digest"
	ModeDiagnose = "diagnose"

	DefaultInterestProfile = `Likes: artificial intelligence research, large language models, ` +
		`AI products and developer tools, open-source model releases, AI policy and safety.
Dislikes: funding rounds without technical substance, hiring and layoffs, ` +
		`celebrity gossip, sponsored or marketing content.`
)

type Config struct {
	LarkWebhook string `env:"LARK_WEBHOOK,required,notEmpty"`
	LarkSecret  string `env:"LARK_SECRET"`

	AIProvider   string `env:"AI_PROVIDER"    envDefault:"gemini"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"   envDefault:"gemini-2.5-flash"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	FeedURLs        []string      `env:"FEED_URLS"        envDefault:"https://techcrunch.com/category/artificial-intelligence/feed/,https://openai.com/blog/rss.xml"`
	EntriesPerFeed  int           `env:"ENTRIES_PER_FEED" envDefault:"5"`
	FilterEnabled   bool          `env:"FILTER_ENABLED"   envDefault:"true"`
	InterestProfile string        `env:"INTEREST_PROFILE"`
	SummaryLanguage string        `env:"SUMMARY_LANGUAGE" envDefault:"Chinese"`
	DigestTitle     string        `env:"DIGEST_TITLE"     envDefault:"AI 日报"`
	RecencyWindow   time.Duration `env:"RECENCY_WINDOW"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT"     envDefault:"30s"`

	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	Mode     string     `env:"RUN_MODE" envDefault:"digest"`
	Schedule string     `env:"SCHEDULE"`
	Timezone string     `env:"TIMEZONE" envDefault:"UTC"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(env.ToMap(os.Environ()))
}

// LoadFrom parses and validates the given environment.
func LoadFrom(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Location resolves Timezone, which Validate has already checked.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// TelegramEnabled reports whether the secondary Telegram delivery is configured.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func (c Config) Validate() error {
	var errs []error

	if _, err := parseHTTPURL(c.LarkWebhook); err != nil {
		errs = append(errs, fmt.Errorf("LARK_WEBHOOK: %w", err))
	}

	switch c.AIProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER must be %q or %q (got %q)",
			ProviderGemini, ProviderOpenAI, c.AIProvider))
	}

	if len(c.FeedURLs) == 0 {
		errs = append(errs, errors.New("FEED_URLS is empty"))
	}
	for _, feedURL := range c.FeedURLs {
		if _, err := parseHTTPURL(feedURL); err != nil {
			errs = append(errs, fmt.Errorf("FEED_URLS: %w", err))
		}
	}

	if c.EntriesPerFeed <= 0 {
		errs = append(errs, fmt.Errorf("ENTRIES_PER_FEED must be positive (got %d)", c.EntriesPerFeed))
	}

	if c.RecencyWindow < 0 {
		errs = append(errs, fmt.Errorf("RECENCY_WINDOW must not be negative (got %s)", c.RecencyWindow))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive (got %s)", c.HTTPTimeout))
	}

	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		errs = append(errs, errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}

	if c.Mode != ModeDigest && c.Mode != ModeDiagnose {
		errs = append(errs, fmt.Errorf("RUN_MODE must be %q or %q (got %q)",
			ModeDigest, ModeDiagnose, c.Mode))
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("SCHEDULE: %w", err))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) normalize() {
	c.LarkWebhook = strings.TrimSpace(c.LarkWebhook)
	c.LarkSecret = strings.TrimSpace(c.LarkSecret)
	c.AIProvider = strings.ToLower(strings.TrimSpace(c.AIProvider))
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Schedule = strings.TrimSpace(c.Schedule)

	feedURLs := make([]string, 0, len(c.FeedURLs))
	for _, feedURL := range c.FeedURLs {
		if trimmed := strings.TrimSpace(feedURL); trimmed != "" {
			feedURLs = append(feedURLs, trimmed)
		}
	}
	c.FeedURLs = feedURLs

	c.InterestProfile = strings.TrimSpace(c.InterestProfile)
	if c.InterestProfile == "" {
		c.InterestProfile = DefaultInterestProfile
	}
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL %q must use http or https", raw)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("URL %q has no host", raw)
	}

	return u, nil
}
