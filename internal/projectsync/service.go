package projectsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/models"
	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/Aziraphal/smartportfolio/internal/seo"
)

// ErrPortfolioNotOwned is returned when the acting user does not own the portfolio.
var ErrPortfolioNotOwned = errors.New("projectsync: portfolio belongs to another user")

// Store is the persistence the service needs.
type Store interface {
	GetPortfolio(ctx context.Context, id string) (models.Portfolio, error)
	ActiveCredentials(ctx context.Context, portfolioID string, only []platforms.Platform) ([]models.PlatformCredential, error)
	UpsertProjects(ctx context.Context, portfolioID string, drafts []platforms.ProjectDraft) (int, error)
	MarkSynced(ctx context.Context, credentialID string, at time.Time) error
}

// EventSink receives progress events for a user. Publish must not block.
type EventSink interface {
	Publish(userID string, event Event)
}

type Event struct {
	Type        string             `json:"type"`
	PortfolioID string             `json:"portfolioId"`
	Platform    platforms.Platform `json:"platform,omitempty"`
	Result      *SyncResult        `json:"result,omitempty"`
	Summary     *SyncResponse      `json:"summary,omitempty"`
}

const (
	EventSyncStarted   = "sync.started"
	EventPlatformDone  = "sync.platform_done"
	EventSyncCompleted = "sync.completed"
)

// estimatedProjectsPerIntegration sizes the quota check of a first import.
const estimatedProjectsPerIntegration = 5

type Service struct {
	Store     Store
	Runner    *Runner
	Quota     *quota.Resolver
	Optimizer *seo.Optimizer
	Events    EventSink
	Logger    *log.Logger

	// Defaults fill in app-level secrets a credential does not carry, such as the
	// Behance API key. Only APIKey and AppToken are read.
	Defaults map[platforms.Platform]platforms.Credentials

	Language seo.Language
	Tone     seo.Tone
	// MinResync skips credentials synced more recently unless the request forces a sync.
	MinResync time.Duration
}

func (s *Service) EnsureDefaults() {
	if s.Logger == nil {
		s.Logger = log.Default()
	}
	if s.Runner == nil {
		s.Runner = &Runner{Logger: s.Logger}
	}
	if s.Language == "" {
		s.Language = seo.LanguageFR
	}
	if s.Tone == "" {
		s.Tone = seo.ToneProfessional
	}
	if s.MinResync <= 0 {
		s.MinResync = 5 * time.Minute
	}
}

type SyncRequest struct {
	UserID      string               `json:"userId,omitempty"`
	PortfolioID string               `json:"portfolioId"`
	Platforms   []platforms.Platform `json:"platforms,omitempty"`
	Force       bool                 `json:"force,omitempty"`
	OptimizeSEO bool                 `json:"optimizeSeo,omitempty"`
}

type SyncResponse struct {
	TotalImported     int          `json:"totalImported"`
	ProjectsOptimized int          `json:"projectsOptimized"`
	Results           []SyncResult `json:"results"`
	Errors            []string     `json:"errors,omitempty"`
}

func (s *Service) publish(userID string, ev Event) {
	if s.Events != nil && userID != "" {
		s.Events.Publish(userID, ev)
	}
}

// SyncPortfolio imports every active credential of a portfolio. Per-platform
// failures land in the results; only malformed requests, missing portfolios,
// ownership mismatches and project quota denials are returned as errors.
func (s *Service) SyncPortfolio(ctx context.Context, req SyncRequest) (SyncResponse, error) {
	s.EnsureDefaults()
	resp := SyncResponse{Results: []SyncResult{}}
	if strings.TrimSpace(req.PortfolioID) == "" {
		return resp, &ValidationError{Field: "portfolioId", Message: "portfolio id is required"}
	}
	portfolio, err := s.Store.GetPortfolio(ctx, req.PortfolioID)
	if err != nil {
		return resp, fmt.Errorf("load portfolio: %w", err)
	}
	userID := portfolio.UserID
	if req.UserID != "" && req.UserID != userID {
		return resp, ErrPortfolioNotOwned
	}

	creds, err := s.Store.ActiveCredentials(ctx, req.PortfolioID, req.Platforms)
	if err != nil {
		return resp, fmt.Errorf("load credentials: %w", err)
	}

	now := time.Now().UTC()
	initial := true
	for _, c := range creds {
		if c.LastSync != nil {
			initial = false
			break
		}
	}
	cfgs := make([]SyncConfig, 0, len(creds))
	for _, c := range creds {
		if !req.Force && c.LastSync != nil && now.Sub(*c.LastSync) < s.MinResync {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: synced recently, use force to sync again", c.Platform))
			continue
		}
		cfg := s.configFor(c)
		if initial {
			// First import of a portfolio uses the curated starter filters.
			cfg.Settings = platforms.InitialSettings(c.Platform)
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) == 0 {
		if len(creds) == 0 {
			resp.Errors = append(resp.Errors, "no active integrations")
		}
		return resp, nil
	}

	var guard *quota.Guard
	if s.Quota != nil {
		guard = s.Quota.ForUser(ctx, userID)
		if initial {
			estimate := int64(len(cfgs) * estimatedProjectsPerIntegration)
			if err := guard.CheckAndEnforce(ctx, quota.CreateProject, estimate); err != nil {
				s.Logger.Printf("[PortfolioSync] initial sync denied portfolioId=%s userId=%s err=%v", req.PortfolioID, userID, err)
				return resp, err
			}
		}
	}

	s.publish(userID, Event{Type: EventSyncStarted, PortfolioID: req.PortfolioID})
	start := time.Now()
	results := s.Runner.SyncAll(ctx, cfgs)

	if req.OptimizeSEO {
		resp.ProjectsOptimized = s.enrich(ctx, guard, results)
	}

	for i := range results {
		res := &results[i]
		if res.Success && len(res.Drafts) > 0 {
			n, err := s.Store.UpsertProjects(ctx, req.PortfolioID, res.Drafts)
			if err != nil {
				s.Logger.Printf("[PortfolioSync] persist failed portfolioId=%s platform=%s err=%v", req.PortfolioID, res.Platform, err)
				res.Success = false
				res.ProjectsImported = 0
				res.Errors = append(res.Errors, "failed to save projects")
			} else {
				res.ProjectsImported = n
			}
		}
		if res.Success && res.credentialID != "" {
			if err := s.Store.MarkSynced(ctx, res.credentialID, res.LastSync); err != nil {
				s.Logger.Printf("[PortfolioSync] mark synced failed credentialId=%s err=%v", res.credentialID, err)
			}
		}
		resp.TotalImported += res.ProjectsImported
		for _, e := range res.Errors {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", res.Platform, e))
		}
		s.publish(userID, Event{Type: EventPlatformDone, PortfolioID: req.PortfolioID, Platform: res.Platform, Result: res})
	}
	resp.Results = results

	s.Logger.Printf("[PortfolioSync] portfolio done portfolioId=%s platforms=%d imported=%d optimized=%d dur=%s",
		req.PortfolioID, len(results), resp.TotalImported, resp.ProjectsOptimized, time.Since(start))
	summary := resp
	s.publish(userID, Event{Type: EventSyncCompleted, PortfolioID: req.PortfolioID, Summary: &summary})
	return resp, nil
}

func (s *Service) configFor(c models.PlatformCredential) SyncConfig {
	cfg := SyncConfig{
		CredentialID: c.ID,
		Platform:     c.Platform,
		Username:     c.Username,
		Settings:     c.Settings,
	}
	if c.AccessToken != nil {
		cfg.AccessToken = *c.AccessToken
	}
	if c.APIKey != nil {
		cfg.APIKey = *c.APIKey
	}
	// App tokens never stand in for the credential's own token, otherwise the
	// clients would list the token owner's items instead of the username's.
	if def, ok := s.Defaults[c.Platform]; ok {
		cfg.AppToken = def.AppToken
		if cfg.APIKey == "" {
			cfg.APIKey = def.APIKey
		}
	}
	return cfg
}

// enrich rewrites the drafts of successful results in place. AI quota denial
// only disables the generative path; the local rewrite still runs.
func (s *Service) enrich(ctx context.Context, guard *quota.Guard, results []SyncResult) int {
	var drafts []*platforms.ProjectDraft
	for i := range results {
		if !results[i].Success {
			continue
		}
		for j := range results[i].Drafts {
			drafts = append(drafts, &results[i].Drafts[j])
		}
	}
	if len(drafts) == 0 {
		return 0
	}

	reqs := make([]seo.Request, len(drafts))
	for i, d := range drafts {
		reqs[i] = seo.Request{
			Title:       d.Title,
			Description: d.Description,
			Category:    d.Category,
			Tags:        d.Tags,
			Language:    s.Language,
			Tone:        s.Tone,
		}
	}

	useAI := s.Optimizer != nil && s.Optimizer.Enabled()
	if useAI && guard != nil {
		dec, err := guard.CanPerformAction(ctx, quota.UseAIOptimization, int64(len(drafts)))
		if err != nil || !dec.Allowed {
			s.Logger.Printf("[PortfolioSync] ai optimization skipped userId=%s drafts=%d reason=%q err=%v", guard.UserID, len(drafts), dec.Reason, err)
			useAI = false
		}
	}

	var contents []seo.Content
	if useAI {
		contents = s.Optimizer.BatchOptimize(ctx, reqs)
	} else {
		contents = make([]seo.Content, len(reqs))
		for i, r := range reqs {
			contents[i] = seo.BasicOptimization(r)
		}
	}

	optimized := 0
	for i, c := range contents {
		d := drafts[i]
		if d.OriginalDescription == "" {
			d.OriginalDescription = d.Description
		}
		d.Title = c.Title
		d.Description = c.Description
		d.SEODescription = c.MetaDescription
		d.Slug = c.Slug
		if !c.Fallback {
			optimized++
		}
	}
	return optimized
}

// CredentialStatus is the sync state of one credential.
type CredentialStatus struct {
	Platform platforms.Platform `json:"platform"`
	Username string             `json:"username"`
	IsActive bool               `json:"isActive"`
	AutoSync bool               `json:"autoSync"`
	LastSync *time.Time         `json:"lastSync"`
	NextSync *time.Time         `json:"nextSync"`
}

// Status reports last and next sync of every credential.
func Status(creds []models.PlatformCredential) []CredentialStatus {
	out := make([]CredentialStatus, 0, len(creds))
	for _, c := range creds {
		out = append(out, CredentialStatus{
			Platform: c.Platform,
			Username: c.Username,
			IsActive: c.IsActive,
			AutoSync: c.Settings.AutoSync,
			LastSync: c.LastSync,
			NextSync: c.NextSync(),
		})
	}
	return out
}
