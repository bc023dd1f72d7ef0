package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/models"
	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const maxWebhookBytes = int64(65536)

// StripeWebhook records subscription changes so plan lookups see them.
// URL: POST /webhook/stripe
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" {
		writeError(w, http.StatusServiceUnavailable, "stripe webhook not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("[Billing][Webhook] read error: %v", err)
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeError(w, http.StatusBadRequest, "missing signature")
		return
	}
	event, err := webhook.ConstructEvent(payload, sig, h.webhookSecret)
	if err != nil {
		h.logger.Printf("[Billing][Webhook] signature verification error: %v", err)
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		if err := h.applySubscriptionEvent(r, event); err != nil {
			h.logger.Printf("[Billing][Webhook] apply failed type=%s id=%s err=%v", event.Type, event.ID, err)
			writeError(w, http.StatusInternalServerError, "failed to apply event")
			return
		}
	default:
		h.logger.Printf("[Billing][Webhook] ignored event type=%s id=%s", event.Type, event.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) applySubscriptionEvent(r *http.Request, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	userID := strings.TrimSpace(sub.Metadata["user_id"])
	if userID == "" {
		h.logger.Printf("[Billing][Webhook] subscription without user_id metadata id=%s", sub.ID)
		return nil
	}

	rec := models.Subscription{
		UserID: userID,
		PlanID: subscriptionPlan(&sub),
		Status: string(sub.Status),
	}
	if event.Type == "customer.subscription.deleted" {
		rec.Status = string(stripe.SubscriptionStatusCanceled)
	}
	if sub.ID != "" {
		id := sub.ID
		rec.StripeSubscriptionID = &id
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		id := sub.Customer.ID
		rec.StripeCustomerID = &id
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		rec.CurrentPeriodEnd = &end
	}
	h.logger.Printf("[Billing][Webhook] subscription userId=%s plan=%s status=%s", rec.UserID, rec.PlanID, rec.Status)
	return h.store.UpsertSubscription(r.Context(), rec)
}

// subscriptionPlan reads plan_id metadata, then the first price lookup key.
func subscriptionPlan(sub *stripe.Subscription) string {
	if p := strings.TrimSpace(sub.Metadata["plan_id"]); p != "" {
		return strings.ToLower(p)
	}
	if sub.Items != nil {
		for _, it := range sub.Items.Data {
			if it != nil && it.Price != nil && it.Price.LookupKey != "" {
				return strings.ToLower(it.Price.LookupKey)
			}
		}
	}
	return quota.PlanFree
}
