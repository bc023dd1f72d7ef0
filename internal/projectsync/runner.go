package projectsync

import (
	"context"
	"fmt"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"golang.org/x/sync/errgroup"
)

// SyncAll imports every config and returns one result per config, in order.
// A failing platform never cancels the others.
func (r *Runner) SyncAll(ctx context.Context, cfgs []SyncConfig) []SyncResult {
	r.EnsureDefaults()
	out := make([]SyncResult, len(cfgs))
	var g errgroup.Group
	g.SetLimit(r.Concurrency)
	for i, cfg := range cfgs {
		i, cfg := i, cfg
		g.Go(func() error {
			out[i] = r.syncOne(ctx, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func fail(res *SyncResult, format string, args ...any) SyncResult {
	res.Success = false
	res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	return *res
}

func (r *Runner) syncOne(parent context.Context, cfg SyncConfig) (res SyncResult) {
	start := time.Now()
	res = SyncResult{Platform: cfg.Platform, LastSync: start.UTC(), Errors: []string{}, credentialID: cfg.CredentialID}
	defer func() {
		if p := recover(); p != nil {
			r.Logger.Printf("[PortfolioSync] panic platform=%s username=%s err=%v", cfg.Platform, cfg.Username, p)
			res.Success = false
			res.Drafts = nil
			res.ProjectsImported = 0
			res.Errors = append(res.Errors, fmt.Sprintf("internal error: %v", p))
		}
	}()

	if err := ValidateConfig(cfg); err != nil {
		r.Logger.Printf("[PortfolioSync] invalid config platform=%s err=%v", cfg.Platform, err)
		return fail(&res, "%s", err.Error())
	}
	factory, ok := r.Factories[cfg.Platform]
	if !ok {
		return fail(&res, "unsupported platform %q", cfg.Platform)
	}
	r.Logger.Printf("[PortfolioSync] start platform=%s username=%s", cfg.Platform, cfg.Username)

	lim, limits := r.limiterFor(cfg.Platform)
	if r.Budget != nil && limits.DailyRequestsMax > 0 {
		ok, used, err := r.Budget.ConsumeSyncRequests(parent, string(cfg.Platform), 1, limits.DailyRequestsMax)
		if err != nil {
			r.Logger.Printf("[PortfolioSync] quota check failed platform=%s err=%v", cfg.Platform, err)
			return fail(&res, "request budget unavailable: %v", err)
		}
		if !ok {
			r.Logger.Printf("[PortfolioSync] daily quota exceeded platform=%s used=%d max=%d", cfg.Platform, used, limits.DailyRequestsMax)
			return fail(&res, "daily request quota exceeded for %s", cfg.Platform.DisplayName())
		}
	}

	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return fail(&res, "rate limit wait: %v", err)
		}
	}

	client := factory(cfg.credentials(), r.Options)
	items, err := client.GetUserItems(ctx, cfg.Username, platforms.ItemOptions{PerPage: cfg.Settings.ItemLimit()})
	if err != nil {
		r.Logger.Printf("[PortfolioSync] error platform=%s username=%s dur=%s err=%v", cfg.Platform, cfg.Username, time.Since(start), err)
		return fail(&res, "%s", err.Error())
	}
	res.ProjectsFound = len(items)

	drafts := make([]platforms.ProjectDraft, 0, len(items))
	for _, item := range items {
		if !keep(cfg.Platform, cfg.Settings, item) {
			continue
		}
		d, err := client.ConvertToProjectDraft(item)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("convert %s: %v", item.ItemID(), err))
			continue
		}
		drafts = append(drafts, d)
	}
	res.Drafts = drafts
	res.ProjectsImported = len(drafts)
	res.Success = true
	r.Logger.Printf("[PortfolioSync] done platform=%s username=%s found=%d imported=%d dur=%s",
		cfg.Platform, cfg.Username, res.ProjectsFound, res.ProjectsImported, time.Since(start))
	return res
}

// ConnectionTest is the outcome of probing one set of credentials.
type ConnectionTest struct {
	Success     bool                     `json:"success"`
	Profile     *platforms.Profile       `json:"profile,omitempty"`
	SampleItems []platforms.ProjectDraft `json:"sampleProjects"`
	Error       string                   `json:"error,omitempty"`
}

const sampleSize = 3

// TestConnection fetches the profile and the first few items without storing anything.
func (r *Runner) TestConnection(ctx context.Context, cfg SyncConfig) ConnectionTest {
	r.EnsureDefaults()
	out := ConnectionTest{SampleItems: []platforms.ProjectDraft{}}
	if err := ValidateConfig(cfg); err != nil {
		out.Error = err.Error()
		return out
	}
	factory, ok := r.Factories[cfg.Platform]
	if !ok {
		out.Error = fmt.Sprintf("unsupported platform %q", cfg.Platform)
		return out
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	client := factory(cfg.credentials(), r.Options)
	profile, err := client.GetUserProfile(ctx, cfg.Username)
	if err != nil {
		r.Logger.Printf("[PortfolioSync] connection test failed platform=%s username=%s err=%v", cfg.Platform, cfg.Username, err)
		out.Error = err.Error()
		return out
	}
	out.Profile = &profile

	items, err := client.GetUserItems(ctx, cfg.Username, platforms.ItemOptions{PerPage: sampleSize})
	if err != nil {
		out.Error = err.Error()
		return out
	}
	for _, item := range items {
		if len(out.SampleItems) == sampleSize {
			break
		}
		if d, err := client.ConvertToProjectDraft(item); err == nil {
			out.SampleItems = append(out.SampleItems, d)
		}
	}
	out.Success = true
	return out
}
