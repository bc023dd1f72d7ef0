// Package store is the Postgres persistence layer of the sync pipeline.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/models"
	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("store: not found")

type Store struct {
	DB     *sql.DB
	Logger *log.Logger
}

func New(db *sql.DB) *Store {
	return &Store{DB: db, Logger: log.Default()}
}

func (s *Store) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

func (s *Store) GetPortfolio(ctx context.Context, id string) (models.Portfolio, error) {
	var p models.Portfolio
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, title, slug, created_at, updated_at
		FROM public.portfolios
		WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.Title, &p.Slug, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Portfolio{}, ErrNotFound
	}
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("get portfolio: %w", err)
	}
	return p, nil
}

const credentialColumns = `c.id, c.portfolio_id, f.user_id, c.platform, c.username, c.access_token, c.api_key, c.is_active, c.settings, c.last_sync, c.created_at, c.updated_at`

func scanCredentials(rows *sql.Rows) ([]models.PlatformCredential, error) {
	defer rows.Close()
	var out []models.PlatformCredential
	for rows.Next() {
		var c models.PlatformCredential
		var platform string
		var settings []byte
		if err := rows.Scan(&c.ID, &c.PortfolioID, &c.UserID, &platform, &c.Username, &c.AccessToken, &c.APIKey,
			&c.IsActive, &settings, &c.LastSync, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		c.Platform = platforms.Platform(platform)
		c.Settings = decodeSettings(settings)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

// decodeSettings overlays stored settings on the defaults.
func decodeSettings(raw []byte) platforms.SyncSettings {
	s := platforms.DefaultSettings()
	if len(raw) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return platforms.DefaultSettings()
	}
	return s
}

// ActiveCredentials lists the active credentials of a portfolio, optionally
// restricted to the given platforms.
func (s *Store) ActiveCredentials(ctx context.Context, portfolioID string, only []platforms.Platform) ([]models.PlatformCredential, error) {
	filter := make([]string, 0, len(only))
	for _, p := range only {
		filter = append(filter, string(p))
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM public.platform_credentials c
		JOIN public.portfolios f ON f.id = c.portfolio_id
		WHERE c.portfolio_id = $1
		  AND c.is_active
		  AND (cardinality($2::text[]) = 0 OR c.platform = ANY($2::text[]))
		ORDER BY c.created_at ASC, c.id ASC
	`, portfolioID, pq.Array(filter))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return scanCredentials(rows)
}

// Credentials lists every credential of a portfolio, including inactive ones.
func (s *Store) Credentials(ctx context.Context, portfolioID string) ([]models.PlatformCredential, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM public.platform_credentials c
		JOIN public.portfolios f ON f.id = c.portfolio_id
		WHERE c.portfolio_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return scanCredentials(rows)
}

// DueCredentials returns active auto-sync credentials whose interval has elapsed at now.
func (s *Store) DueCredentials(ctx context.Context, now time.Time, limit int) ([]models.PlatformCredential, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM public.platform_credentials c
		JOIN public.portfolios f ON f.id = c.portfolio_id
		WHERE c.is_active
		  AND COALESCE((c.settings->>'autoSync')::boolean, FALSE)
		  AND (
		    c.last_sync IS NULL
		    OR c.last_sync + make_interval(hours => COALESCE(NULLIF((c.settings->>'syncInterval')::int, 0), 24)) <= $1
		  )
		ORDER BY c.last_sync ASC NULLS FIRST
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due credentials: %w", err)
	}
	return scanCredentials(rows)
}

func (s *Store) MarkSynced(ctx context.Context, credentialID string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE public.platform_credentials
		SET last_sync = $2, updated_at = NOW()
		WHERE id = $1
	`, credentialID, at)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// UpsertProjects writes drafts in one transaction, keyed by
// (portfolio_id, source, external_id). It returns the number of rows written.
func (s *Store) UpsertProjects(ctx context.Context, portfolioID string, drafts []platforms.ProjectDraft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO public.projects
		  (portfolio_id, title, description, original_description, seo_description, slug, image_url, project_url, source_url,
		   tags, category, external_id, source, featured, sort_order, source_created_at, source_updated_at, created_at, updated_at)
		VALUES
		  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		ON CONFLICT (portfolio_id, source, external_id)
		DO UPDATE SET
		  title = EXCLUDED.title,
		  description = EXCLUDED.description,
		  original_description = EXCLUDED.original_description,
		  seo_description = COALESCE(EXCLUDED.seo_description, public.projects.seo_description),
		  slug = COALESCE(EXCLUDED.slug, public.projects.slug),
		  image_url = EXCLUDED.image_url,
		  project_url = EXCLUDED.project_url,
		  source_url = EXCLUDED.source_url,
		  tags = EXCLUDED.tags,
		  category = EXCLUDED.category,
		  featured = EXCLUDED.featured,
		  sort_order = EXCLUDED.sort_order,
		  source_created_at = EXCLUDED.source_created_at,
		  source_updated_at = EXCLUDED.source_updated_at,
		  updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, d := range drafts {
		if d.ExternalID == "" || d.Source == "" {
			s.logger().Printf("[Store] skip draft without identity portfolioId=%s title=%q", portfolioID, d.Title)
			continue
		}
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		res, err := stmt.ExecContext(ctx, portfolioID, d.Title, d.Description, nullIfEmpty(d.OriginalDescription),
			nullIfEmpty(d.SEODescription), nullIfEmpty(d.Slug), nullIfEmpty(d.ImageURL), nullIfEmpty(d.ProjectURL),
			nullIfEmpty(d.SourceURL), pq.Array(tags), d.Category, d.ExternalID, string(d.Source), d.Featured, d.Order,
			nullTime(d.CreatedAt), nullTime(d.UpdatedAt))
		if err != nil {
			return 0, fmt.Errorf("upsert project %s: %w", d.Key(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return written, nil
}

// UsageForUser recomputes live counts. Counters that are not tracked yet stay zero.
func (s *Store) UsageForUser(ctx context.Context, userID string) (quota.Usage, error) {
	var u quota.Usage
	err := s.DB.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM public.projects p JOIN public.portfolios f ON f.id = p.portfolio_id WHERE f.user_id = $1),
		  (SELECT COUNT(*) FROM public.platform_credentials c JOIN public.portfolios f ON f.id = c.portfolio_id WHERE f.user_id = $1 AND c.is_active),
		  (SELECT COUNT(*) FROM public.portfolios WHERE user_id = $1)
	`, userID).Scan(&u.Projects, &u.Integrations, &u.Portfolios)
	if err != nil {
		return quota.Usage{}, fmt.Errorf("usage for user: %w", err)
	}
	return u, nil
}

// ActivePlan returns the user's active plan, "free" when there is no active subscription.
func (s *Store) ActivePlan(ctx context.Context, userID string) (string, error) {
	var planID string
	err := s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(plan_id, 'free') AS plan_id
		FROM public.subscriptions
		WHERE user_id = $1 AND status IN ('active', 'trialing')
	`, userID).Scan(&planID)
	if err == sql.ErrNoRows {
		return quota.PlanFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("active plan: %w", err)
	}
	return planID, nil
}

// PlanLimitations reads billing_plans.limits, overlaid on the built-in table.
func (s *Store) PlanLimitations(ctx context.Context, planID string) (quota.PlanLimitations, bool, error) {
	var raw []byte
	err := s.DB.QueryRowContext(ctx, `
		SELECT limits FROM public.billing_plans WHERE id = $1 AND is_active
	`, planID).Scan(&raw)
	if err == sql.ErrNoRows {
		return quota.PlanLimitations{}, false, nil
	}
	if err != nil {
		return quota.PlanLimitations{}, false, fmt.Errorf("plan limitations: %w", err)
	}
	l := quota.LimitsForPlan(planID)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &l); err != nil {
			return quota.PlanLimitations{}, false, fmt.Errorf("decode plan %s limits: %w", planID, err)
		}
	}
	return l, true, nil
}

// UpsertSubscription records the subscription state reported by the billing provider.
func (s *Store) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	if sub.UserID == "" {
		return fmt.Errorf("upsert subscription: user id is required")
	}
	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO public.users (id, email, name)
		VALUES ($1, '', '')
		ON CONFLICT (id) DO NOTHING
	`, sub.UserID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO public.subscriptions (user_id, plan_id, status, stripe_customer_id, stripe_subscription_id, current_period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
		  plan_id = EXCLUDED.plan_id,
		  status = EXCLUDED.status,
		  stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, public.subscriptions.stripe_customer_id),
		  stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, public.subscriptions.stripe_subscription_id),
		  current_period_end = EXCLUDED.current_period_end,
		  updated_at = NOW()
	`, sub.UserID, sub.PlanID, sub.Status, sub.StripeCustomerID, sub.StripeSubscriptionID, sub.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// ConsumeSyncRequests adds to today's request count for a platform. ok is
// false when dailyMax is set and the new total exceeds it.
func (s *Store) ConsumeSyncRequests(ctx context.Context, platform string, add, dailyMax int64) (ok bool, used int64, err error) {
	if add <= 0 {
		return true, 0, nil
	}
	day := time.Now().UTC().Format("2006-01-02")
	id := fmt.Sprintf("%s:%s", platform, day)
	err = s.DB.QueryRowContext(ctx, `
		INSERT INTO public.sync_request_usage (id, platform, day, requests_used, last_updated_at)
		VALUES ($1, $2, $3::date, $4, NOW())
		ON CONFLICT (platform, day) DO UPDATE SET
		  requests_used = public.sync_request_usage.requests_used + EXCLUDED.requests_used,
		  last_updated_at = NOW()
		RETURNING requests_used
	`, id, platform, day, add).Scan(&used)
	if err != nil {
		return false, 0, fmt.Errorf("consume sync requests: %w", err)
	}
	if dailyMax > 0 && used > dailyMax {
		return false, used, nil
	}
	return true, used, nil
}
