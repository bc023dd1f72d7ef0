package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Aziraphal/smartportfolio/internal/projectsync"
	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/Aziraphal/smartportfolio/internal/store"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// writeJSON encodes v as JSON with the provided status code and a JSON content-type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLimitation renders a quota denial as 402 with everything an upgrade prompt needs.
func writeLimitation(w http.ResponseWriter, e *quota.PlanLimitationError) {
	writeJSON(w, http.StatusPaymentRequired, map[string]any{
		"error":        "plan_limitation",
		"message":      e.Reason,
		"action":       e.Action,
		"planId":       e.PlanID,
		"currentUsage": e.CurrentUsage,
		"limit":        e.Limit,
	})
}

// statusFor maps domain errors to HTTP statuses. ok is false for unexpected errors.
func statusFor(err error) (int, bool) {
	var ve *projectsync.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, quota.ErrUnknownAction):
		return http.StatusBadRequest, true
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, projectsync.ErrPortfolioNotOwned):
		return http.StatusForbidden, true
	}
	return http.StatusInternalServerError, false
}

// pathVar returns the mux path var value (or empty string if missing).
func pathVar(r *http.Request, key string) string {
	return strings.TrimSpace(mux.Vars(r)[key])
}

// decodeJSON decodes at most maxBodyBytes. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
