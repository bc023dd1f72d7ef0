package handlers

import (
	"net/http"

	"github.com/Aziraphal/smartportfolio/internal/middleware"
	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every endpoint of the sync API on r.
func RegisterRoutes(h *Handler, r *mux.Router) {
	enforcer := middleware.NewSubscriptionEnforcer(h.quota, h.logger)

	r.HandleFunc("/health", h.Health).Methods("GET")

	r.HandleFunc("/api/sync/portfolio/{portfolioId}", h.SyncPortfolio).Methods("POST")
	r.HandleFunc("/api/sync/status/portfolio/{portfolioId}", h.SyncStatus).Methods("GET")
	r.HandleFunc("/api/integrations/test", h.TestIntegration).Methods("POST")

	r.HandleFunc("/api/plans/check-limitation/user/{userId}", h.CheckLimitation).Methods("POST")
	r.HandleFunc("/api/plans/status/user/{userId}", h.PlanStatus).Methods("GET")

	r.HandleFunc("/api/seo/analyze", h.AnalyzeSEO).Methods("POST")
	r.Handle("/api/seo/optimize/user/{userId}",
		enforcer.Require(quota.UseAIOptimization, 1)(http.HandlerFunc(h.OptimizeSEO))).Methods("POST")

	r.HandleFunc("/webhook/stripe", h.StripeWebhook).Methods("POST")

	r.HandleFunc("/api/events/ping", h.EventsPing).Methods("GET")
	r.HandleFunc("/api/events/ws", h.EventsWebSocket)
}
