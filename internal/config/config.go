// Package config builds the service configuration once, from the process
// environment, so that core packages never read it themselves.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	// MigrationsURL is a golang-migrate source URL.
	MigrationsURL string

	GitHubToken         string
	BehanceAPIKey       string
	DribbbleAccessToken string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	SEOCacheTTL   time.Duration
	SEOChunkPause time.Duration

	SyncTimeout     time.Duration
	SyncConcurrency int

	AutoSyncEnabled  bool
	AutoSyncInterval time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	InternalWSSecret    string
	AllowedOrigins      []string
}

// Load reads configuration through getenv. Only DATABASE_URL is required.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		return Config{}, fmt.Errorf("config: getenv is required")
	}
	str := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	c := Config{
		Port:                str("PORT", "18911"),
		DatabaseURL:         str("DATABASE_URL", ""),
		MigrationsURL:       str("MIGRATIONS_URL", "file://db/migrations"),
		GitHubToken:         str("GITHUB_TOKEN", ""),
		BehanceAPIKey:       str("BEHANCE_API_KEY", ""),
		DribbbleAccessToken: str("DRIBBBLE_ACCESS_TOKEN", ""),
		OpenAIAPIKey:        str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       str("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:         str("OPENAI_MODEL", "gpt-4o-mini"),
		SEOCacheTTL:         Seconds(getenv, "SEO_CACHE_TTL_SECONDS", 24*time.Hour),
		SEOChunkPause:       Millis(getenv, "SEO_CHUNK_PAUSE_MS", time.Second),
		SyncTimeout:         Seconds(getenv, "SYNC_TIMEOUT_SECONDS", 20*time.Second),
		SyncConcurrency:     Int(getenv, "SYNC_CONCURRENCY", 2),
		AutoSyncEnabled:     Bool(getenv, "AUTO_SYNC_ENABLED", true),
		AutoSyncInterval:    Seconds(getenv, "AUTO_SYNC_INTERVAL_SECONDS", 15*time.Minute),
		StripeSecretKey:     str("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: str("STRIPE_WEBHOOK_SECRET", ""),
		InternalWSSecret:    str("INTERNAL_WS_SECRET", ""),
		AllowedOrigins:      List(getenv, "CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
	if c.DatabaseURL == "" {
		return c, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return c, nil
}

// AIEnabled reports whether an OpenAI key is configured.
func (c Config) AIEnabled() bool { return c.OpenAIAPIKey != "" }

// Seconds parses a positive integer number of seconds, falling back to def.
func Seconds(getenv func(string) string, key string, def time.Duration) time.Duration {
	if n := Int(getenv, key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func Millis(getenv func(string) string, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// Int parses a positive integer, falling back to def.
func Int(getenv func(string) string, key string, def int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func Bool(getenv func(string) string, key string, def bool) bool {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func List(getenv func(string) string, key string, def []string) []string {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
