package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"github.com/Aziraphal/smartportfolio/internal/projectsync"
	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/Aziraphal/smartportfolio/internal/seo"
	"github.com/Aziraphal/smartportfolio/internal/store"
)

type Handler struct {
	store *store.Store
	quota *quota.Resolver
	sync  *projectsync.Service
	seo   *seo.Optimizer
	rt    *realtimeHub

	webhookSecret string
	wsSecret      string
	logger        *log.Logger
}

// Options carries the collaborators built from configuration. Zero values
// fall back to store-backed defaults.
type Options struct {
	Service             *projectsync.Service
	Optimizer           *seo.Optimizer
	StripeWebhookSecret string
	InternalWSSecret    string
	Logger              *log.Logger
}

func New(db *sql.DB) *Handler {
	return NewWithOptions(db, Options{})
}

func NewWithOptions(db *sql.DB, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	st := store.New(db)
	st.Logger = logger
	resolver := &quota.Resolver{Plans: st, Usage: st, Logger: logger}

	h := &Handler{
		store:         st,
		quota:         resolver,
		seo:           opts.Optimizer,
		rt:            newRealtimeHub(),
		webhookSecret: strings.TrimSpace(opts.StripeWebhookSecret),
		wsSecret:      strings.TrimSpace(opts.InternalWSSecret),
		logger:        logger,
	}

	svc := opts.Service
	if svc == nil {
		svc = &projectsync.Service{}
	}
	if svc.Logger == nil {
		svc.Logger = logger
	}
	if svc.Runner == nil {
		svc.Runner = &projectsync.Runner{Logger: logger}
	}
	if svc.Runner.Budget == nil {
		svc.Runner.Budget = st
	}
	if svc.Store == nil {
		svc.Store = st
	}
	if svc.Quota == nil {
		svc.Quota = resolver
	}
	if svc.Optimizer == nil {
		svc.Optimizer = opts.Optimizer
	}
	if svc.Events == nil {
		svc.Events = h
	}
	svc.EnsureDefaults()
	svc.Runner.EnsureDefaults()
	h.sync = svc
	return h
}

// Service exposes the sync entrypoint to background workers.
func (h *Handler) Service() *projectsync.Service { return h.sync }

func (h *Handler) Store() *store.Store { return h.store }

func (h *Handler) Quota() *quota.Resolver { return h.quota }

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// fail renders err and logs the unexpected ones.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var ple *quota.PlanLimitationError
	if errors.As(err, &ple) {
		writeLimitation(w, ple)
		return
	}
	status, known := statusFor(err)
	if !known {
		h.logger.Printf("[API] %s failed err=%v", op, err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func parsePlatforms(in []string) ([]platforms.Platform, error) {
	out := make([]platforms.Platform, 0, len(in))
	for _, s := range in {
		p, err := platforms.ParsePlatform(s)
		if err != nil {
			return nil, &projectsync.ValidationError{Field: "platforms", Message: err.Error()}
		}
		out = append(out, p)
	}
	return out, nil
}

// SyncPortfolio imports every active integration of a portfolio.
// URL: POST /api/sync/portfolio/{portfolioId}
func (h *Handler) SyncPortfolio(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID      string   `json:"userId"`
		Platforms   []string `json:"platforms"`
		Force       bool     `json:"force"`
		OptimizeSEO bool     `json:"optimizeSeo"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	only, err := parsePlatforms(body.Platforms)
	if err != nil {
		h.fail(w, "sync", err)
		return
	}
	resp, err := h.sync.SyncPortfolio(r.Context(), projectsync.SyncRequest{
		UserID:      strings.TrimSpace(body.UserID),
		PortfolioID: pathVar(r, "portfolioId"),
		Platforms:   only,
		Force:       body.Force,
		OptimizeSEO: body.OptimizeSEO,
	})
	if err != nil {
		h.fail(w, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SyncStatus reports the last and next sync of every integration.
// URL: GET /api/sync/status/portfolio/{portfolioId}
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "portfolioId")
	if _, err := h.store.GetPortfolio(r.Context(), id); err != nil {
		h.fail(w, "sync status", err)
		return
	}
	creds, err := h.store.Credentials(r.Context(), id)
	if err != nil {
		h.fail(w, "sync status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"portfolioId":  id,
		"integrations": projectsync.Status(creds),
	})
}

// TestIntegration probes credentials without storing anything.
// URL: POST /api/integrations/test
func (h *Handler) TestIntegration(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Platform    string `json:"platform"`
		Username    string `json:"username"`
		AccessToken string `json:"accessToken"`
		APIKey      string `json:"apiKey"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := platforms.ParsePlatform(body.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := projectsync.SyncConfig{
		Platform:    p,
		Username:    strings.TrimSpace(body.Username),
		AccessToken: strings.TrimSpace(body.AccessToken),
		APIKey:      strings.TrimSpace(body.APIKey),
	}
	if def, ok := h.sync.Defaults[p]; ok && cfg.APIKey == "" {
		cfg.APIKey = def.APIKey
	}
	writeJSON(w, http.StatusOK, h.sync.Runner.TestConnection(r.Context(), cfg))
}

// CheckLimitation answers one quota question.
// URL: POST /api/plans/check-limitation/user/{userId}
func (h *Handler) CheckLimitation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action   string `json:"action"`
		Quantity int64  `json:"quantity"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	action, err := quota.ParseAction(body.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}
	guard := h.quota.ForUser(r.Context(), pathVar(r, "userId"))
	d, err := guard.CanPerformAction(r.Context(), action, body.Quantity)
	if err != nil {
		h.logger.Printf("[Quota] check failed userId=%s action=%s err=%v", guard.UserID, action, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"planId":   guard.PlanID,
		"action":   action,
		"decision": d,
	})
}

// PlanStatus reports usage against every limit of the user's plan.
// URL: GET /api/plans/status/user/{userId}
func (h *Handler) PlanStatus(w http.ResponseWriter, r *http.Request) {
	guard := h.quota.ForUser(r.Context(), pathVar(r, "userId"))
	st, err := guard.LimitationStatus(r.Context())
	if err != nil {
		h.fail(w, "plan status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// AnalyzeSEO scores a piece of text.
// URL: POST /api/seo/analyze
func (h *Handler) AnalyzeSEO(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text     string   `json:"text"`
		Keywords []string `json:"keywords"`
		Category string   `json:"category"`
		Language string   `json:"language"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":            seo.AnalyzeContent(body.Text, body.Keywords),
		"recommendedKeywords": seo.RecommendedKeywords(body.Category, seo.ParseLanguage(body.Language)),
	})
}

// OptimizeSEO rewrites one project text. Plan enforcement happens in middleware.
// URL: POST /api/seo/optimize/user/{userId}
func (h *Handler) OptimizeSEO(w http.ResponseWriter, r *http.Request) {
	var req seo.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "title or description is required")
		return
	}
	var out seo.Content
	if h.seo != nil {
		out = h.seo.OptimizeContent(r.Context(), req)
	} else {
		out = seo.BasicOptimization(req)
	}
	writeJSON(w, http.StatusOK, out)
}
