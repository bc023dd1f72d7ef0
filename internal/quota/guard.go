package quota

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

type Action string

const (
	CreateProject     Action = "create_project"
	AddIntegration    Action = "add_integration"
	CreatePortfolio   Action = "create_portfolio"
	UseCustomDomain   Action = "use_custom_domain"
	GenerateCV        Action = "generate_cv"
	UseAIOptimization Action = "use_ai_optimization"
	AccessAnalytics   Action = "access_analytics"
)

var ErrUnknownAction = errors.New("quota: unknown action")

// PlanSource resolves the acting plan of a user. PlanLimitations reports
// found=false when the plan has no stored limit table.
type PlanSource interface {
	ActivePlan(ctx context.Context, userID string) (string, error)
	PlanLimitations(ctx context.Context, planID string) (PlanLimitations, bool, error)
}

type UsageSource interface {
	UsageForUser(ctx context.Context, userID string) (Usage, error)
}

// Decision is the answer to a single quota check. CurrentUsage and Limit are
// set for quantity-bounded actions only.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"`
	CurrentUsage *int64 `json:"currentUsage,omitempty"`
	Limit        *int64 `json:"limit,omitempty"`
}

// Resolver builds per-user guards.
type Resolver struct {
	Plans  PlanSource
	Usage  UsageSource
	Logger *log.Logger
}

func (r *Resolver) EnsureDefaults() {
	if r.Logger == nil {
		r.Logger = log.Default()
	}
}

// ForUser resolves the user's plan and its limits. Lookup failures degrade to
// the free plan; they never grant more than free.
func (r *Resolver) ForUser(ctx context.Context, userID string) *Guard {
	r.EnsureDefaults()
	planID := PlanFree
	if r.Plans != nil {
		id, err := r.Plans.ActivePlan(ctx, userID)
		if err != nil {
			r.Logger.Printf("[Quota] plan lookup failed userId=%s err=%v", userID, err)
		} else if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			planID = id
		}
	}

	var limits PlanLimitations
	found := false
	if r.Plans != nil {
		l, ok, err := r.Plans.PlanLimitations(ctx, planID)
		if err != nil {
			r.Logger.Printf("[Quota] plan limits lookup failed planId=%s err=%v", planID, err)
		} else if ok {
			limits, found = l, true
		}
	}
	if !found {
		planID = NormalizePlanID(planID)
		limits = LimitsForPlan(planID)
	}
	return &Guard{UserID: userID, PlanID: planID, Limits: limits, usage: r.Usage}
}

// Guard answers quota questions for one user against one resolved plan.
type Guard struct {
	UserID string
	PlanID string
	Limits PlanLimitations
	usage  UsageSource
}

// NewGuard builds a guard with explicit limits.
func NewGuard(userID, planID string, limits PlanLimitations, usage UsageSource) *Guard {
	return &Guard{UserID: userID, PlanID: planID, Limits: limits, usage: usage}
}

func (g *Guard) currentUsage(ctx context.Context) (Usage, error) {
	if g.usage == nil {
		return Usage{}, nil
	}
	u, err := g.usage.UsageForUser(ctx, g.UserID)
	if err != nil {
		return Usage{}, fmt.Errorf("quota: read usage: %w", err)
	}
	return u, nil
}

// CanPerformAction never grants an unknown action and never grants when usage
// cannot be read.
func (g *Guard) CanPerformAction(ctx context.Context, action Action, quantity int64) (Decision, error) {
	if !action.known() {
		return Decision{Allowed: false, Reason: "unknown action"}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if action.featureGated() {
		return featureDecision(action, g.Limits), nil
	}

	usage, err := g.currentUsage(ctx)
	if err != nil {
		return Decision{Allowed: false, Reason: "usage unavailable"}, err
	}

	l := g.Limits
	switch action {
	case CreateProject:
		return quantityDecision(usage.Projects, l.MaxProjects, quantity, fmt.Sprintf("limit of %d projects reached", l.MaxProjects)), nil
	case AddIntegration:
		return quantityDecision(usage.Integrations, l.MaxIntegrations, quantity, fmt.Sprintf("limit of %d integrations reached", l.MaxIntegrations)), nil
	case CreatePortfolio:
		return quantityDecision(usage.Portfolios, l.MaxPortfolios, quantity, fmt.Sprintf("limit of %d portfolio(s) reached", l.MaxPortfolios)), nil
	default: // UseAIOptimization
		return quantityDecision(usage.AIOptimizationsUsed, l.AIOptimizations, quantity, fmt.Sprintf("limit of %d AI optimizations reached this month", l.AIOptimizations)), nil
	}
}

// CheckAndEnforce turns a denial into a *PlanLimitationError.
func (g *Guard) CheckAndEnforce(ctx context.Context, action Action, quantity int64) error {
	d, err := g.CanPerformAction(ctx, action, quantity)
	if err != nil {
		return err
	}
	if d.Allowed {
		return nil
	}
	return &PlanLimitationError{
		Action:       action,
		PlanID:       g.PlanID,
		Reason:       d.Reason,
		CurrentUsage: d.CurrentUsage,
		Limit:        d.Limit,
	}
}

func quantityDecision(used, limit, quantity int64, reason string) Decision {
	u, l := used, limit
	d := Decision{CurrentUsage: &u, Limit: &l}
	if limit == Unlimited || used+quantity <= limit {
		d.Allowed = true
		return d
	}
	d.Reason = reason
	return d
}

func featureDecision(action Action, l PlanLimitations) Decision {
	switch action {
	case UseCustomDomain:
		if l.CustomDomain {
			return Decision{Allowed: true}
		}
		return Decision{Reason: "custom domain not available on your plan"}
	case GenerateCV:
		if l.CVGeneration {
			return Decision{Allowed: true}
		}
		return Decision{Reason: "CV generation not available on your plan"}
	default: // AccessAnalytics
		if l.Analytics {
			return Decision{Allowed: true}
		}
		return Decision{Reason: "advanced analytics not available on your plan"}
	}
}

func (a Action) known() bool {
	switch a {
	case CreateProject, AddIntegration, CreatePortfolio, UseCustomDomain, GenerateCV, UseAIOptimization, AccessAnalytics:
		return true
	}
	return false
}

func (a Action) featureGated() bool {
	return a == UseCustomDomain || a == GenerateCV || a == AccessAnalytics
}

// ParseAction rejects identifiers outside the known action set.
func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if !a.known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}
