package models

import (
	"time"

	"github.com/Aziraphal/smartportfolio/internal/platforms"
)

type Portfolio struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlatformCredential binds one external account to a portfolio.
// It is deactivated on disconnect rather than deleted.
type PlatformCredential struct {
	ID          string                 `json:"id"`
	PortfolioID string                 `json:"portfolioId"`
	UserID      string                 `json:"userId,omitempty"`
	Platform    platforms.Platform     `json:"platform"`
	Username    string                 `json:"username"`
	AccessToken *string                `json:"-"`
	APIKey      *string                `json:"-"`
	IsActive    bool                   `json:"isActive"`
	Settings    platforms.SyncSettings `json:"settings"`
	LastSync    *time.Time             `json:"lastSync,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// NextSync is nil unless auto-sync is on.
func (c PlatformCredential) NextSync() *time.Time {
	if !c.Settings.AutoSync {
		return nil
	}
	if c.LastSync == nil {
		now := time.Now().UTC()
		return &now
	}
	next := c.LastSync.Add(c.Settings.Interval())
	return &next
}

type Subscription struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	PlanID               string     `json:"planId"`
	Status               string     `json:"status"`
	StripeCustomerID     *string    `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string    `json:"stripeSubscriptionId,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}
