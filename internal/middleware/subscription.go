package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/Aziraphal/smartportfolio/internal/quota"
)

type ctxKey string

const planKey ctxKey = "user_plan"

// PlanFromContext returns the plan resolved by the enforcer, if any.
func PlanFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(planKey).(string)
	return v, ok
}

// SubscriptionEnforcer gates routes on a plan action before they run.
type SubscriptionEnforcer struct {
	Resolver *quota.Resolver
	Logger   *log.Logger
}

func NewSubscriptionEnforcer(resolver *quota.Resolver, logger *log.Logger) *SubscriptionEnforcer {
	if logger == nil {
		logger = log.Default()
	}
	return &SubscriptionEnforcer{Resolver: resolver, Logger: logger}
}

// Require denies the request with 402 when the user's plan does not allow
// quantity units of action. Requests without a user in the path pass through.
func (se *SubscriptionEnforcer) Require(action quota.Action, quantity int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := extractUserID(r)
			if userID == "" || se.Resolver == nil {
				next.ServeHTTP(w, r)
				return
			}

			guard := se.Resolver.ForUser(r.Context(), userID)
			d, err := guard.CanPerformAction(r.Context(), action, quantity)
			if err != nil {
				se.Logger.Printf("[Subscription] check failed userId=%s action=%s err=%v", userID, action, err)
			}
			if !d.Allowed {
				respondLimitExceeded(w, &quota.PlanLimitationError{
					Action:       action,
					PlanID:       guard.PlanID,
					Reason:       d.Reason,
					CurrentUsage: d.CurrentUsage,
					Limit:        d.Limit,
				}, guard.Limits)
				return
			}

			ctx := context.WithValue(r.Context(), planKey, guard.PlanID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractUserID looks for a /user/{userId} path segment.
func extractUserID(r *http.Request) string {
	parts := strings.Split(r.URL.Path, "/")
	for i, part := range parts {
		if part == "user" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func respondLimitExceeded(w http.ResponseWriter, e *quota.PlanLimitationError, limits quota.PlanLimitations) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":        "subscription_limit_exceeded",
		"message":      e.Reason,
		"action":       e.Action,
		"plan":         e.PlanID,
		"currentUsage": e.CurrentUsage,
		"limit":        e.Limit,
		"limits":       limits,
		"upgrade_url":  "/account/billing",
	})
}
