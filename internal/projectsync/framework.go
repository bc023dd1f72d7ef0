// Package projectsync imports projects from every connected platform of a
// portfolio, filters and normalizes them, and hands them to storage.
package projectsync

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"golang.org/x/time/rate"
)

// RequestBudget tracks a daily request allowance per platform.
type RequestBudget interface {
	ConsumeSyncRequests(ctx context.Context, platform string, add, dailyMax int64) (ok bool, used int64, err error)
}

type Runner struct {
	// Factories defaults to platforms.Registry.
	Factories map[platforms.Platform]platforms.Factory
	Options   platforms.Options
	Budget    RequestBudget
	Logger    *log.Logger

	// Timeout bounds each platform independently.
	Timeout     time.Duration
	Concurrency int

	// Getenv supplies PORTFOLIO_SYNC_<PLATFORM>_* rate overrides. Nil disables them.
	Getenv func(string) string

	once     sync.Once
	limiters map[platforms.Platform]*rate.Limiter
	limits   map[platforms.Platform]RateLimitConfig
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	DailyRequestsMax  int64 // 0 means unlimited
}

func DefaultRateLimits() map[platforms.Platform]RateLimitConfig {
	return map[platforms.Platform]RateLimitConfig{
		platforms.GitHub:   {RequestsPerSecond: 1, Burst: 3},
		platforms.Behance:  {RequestsPerSecond: 0.5, Burst: 2},
		platforms.Dribbble: {RequestsPerSecond: 1, Burst: 2},
	}
}

// rateLimitFromEnv applies overrides such as
// PORTFOLIO_SYNC_GITHUB_RPS=0.5, PORTFOLIO_SYNC_GITHUB_BURST=2 and
// PORTFOLIO_SYNC_GITHUB_DAILY_MAX=4000.
func rateLimitFromEnv(getenv func(string) string, p platforms.Platform, def RateLimitConfig) RateLimitConfig {
	if getenv == nil {
		return def
	}
	prefix := "PORTFOLIO_SYNC_" + upper(string(p)) + "_"
	if v := getenv(prefix + "RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			def.RequestsPerSecond = f
		}
	}
	if v := getenv(prefix + "BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			def.Burst = n
		}
	}
	if v := getenv(prefix + "DAILY_MAX"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			def.DailyRequestsMax = n
		}
	}
	return def
}

func upper(s string) string {
	return strings.ReplaceAll(strings.ToUpper(s), "-", "_")
}

func (r *Runner) EnsureDefaults() {
	if r.Factories == nil {
		r.Factories = platforms.Registry
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	if r.Timeout <= 0 {
		r.Timeout = 20 * time.Second
	}
	if r.Concurrency <= 0 {
		r.Concurrency = 2
	}
	r.once.Do(func() {
		r.limiters = make(map[platforms.Platform]*rate.Limiter, len(platforms.All))
		r.limits = make(map[platforms.Platform]RateLimitConfig, len(platforms.All))
		defaults := DefaultRateLimits()
		for _, p := range platforms.All {
			cfg := rateLimitFromEnv(r.Getenv, p, defaults[p])
			r.limits[p] = cfg
			r.limiters[p] = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		}
	})
}

// limiterFor returns the limiter shared by every sync of p.
func (r *Runner) limiterFor(p platforms.Platform) (*rate.Limiter, RateLimitConfig) {
	return r.limiters[p], r.limits[p]
}

// SyncConfig is one platform import request.
type SyncConfig struct {
	CredentialID string                 `json:"-"`
	Platform     platforms.Platform     `json:"platform"`
	Username     string                 `json:"username"`
	AccessToken  string                 `json:"-"`
	APIKey       string                 `json:"-"`
	AppToken     string                 `json:"-"`
	Settings     platforms.SyncSettings `json:"settings"`
}

func (c SyncConfig) credentials() platforms.Credentials {
	return platforms.Credentials{AccessToken: c.AccessToken, APIKey: c.APIKey, AppToken: c.AppToken}
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidateConfig checks a config before any request is made.
func ValidateConfig(cfg SyncConfig) error {
	switch cfg.Platform {
	case platforms.GitHub, platforms.Dribbble:
	case platforms.Behance:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return &ValidationError{Field: "apiKey", Message: "api key required"}
		}
	default:
		return &ValidationError{Field: "platform", Message: fmt.Sprintf("unsupported platform %q", cfg.Platform)}
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return &ValidationError{Field: "username", Message: "username is required"}
	}
	return nil
}

// SyncResult is the outcome of one platform.
type SyncResult struct {
	Platform         platforms.Platform       `json:"platform"`
	Success          bool                     `json:"success"`
	ProjectsFound    int                      `json:"projectsFound"`
	ProjectsImported int                      `json:"projectsImported"`
	Errors           []string                 `json:"errors"`
	LastSync         time.Time                `json:"lastSync"`
	Drafts           []platforms.ProjectDraft `json:"-"`

	credentialID string
}

// keep applies the per-credential filters to a raw item.
func keep(p platforms.Platform, s platforms.SyncSettings, item platforms.RawItem) bool {
	if item.Archived() {
		return false
	}
	switch p {
	case platforms.GitHub:
		if s.ExcludeForked && item.Forked() {
			return false
		}
		if s.MinStars > 0 && item.Popularity() < s.MinStars {
			return false
		}
	case platforms.Behance, platforms.Dribbble:
		if s.MinLikes > 0 && item.Popularity() < s.MinLikes {
			return false
		}
	}
	return true
}
