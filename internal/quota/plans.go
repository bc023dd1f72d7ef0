package quota

import "strings"

// Unlimited marks a quantity ceiling that never denies.
const Unlimited int64 = -1

const (
	PlanFree = "free"
	PlanPro  = "pro"
	PlanTeam = "team"
)

// PlanLimitations is the resolved limit table of one plan.
type PlanLimitations struct {
	MaxProjects     int64 `json:"maxProjects"`
	MaxIntegrations int64 `json:"maxIntegrations"`
	MaxPortfolios   int64 `json:"maxPortfolios"`
	AIOptimizations int64 `json:"aiOptimizations"`
	CustomDomain    bool  `json:"customDomain"`
	CVGeneration    bool  `json:"cvGeneration"`
	Analytics       bool  `json:"analytics"`
	PrioritySupport bool  `json:"prioritySupport"`
	StorageMB       int64 `json:"storage"`
	BandwidthMB     int64 `json:"bandwidth"`
}

// Usage is recomputed from storage on every check and never cached.
// AIOptimizationsUsed, StorageUsedMB, BandwidthUsedMB and CVGenerationsThisMonth
// stay zero until those counters are tracked.
type Usage struct {
	Projects               int64 `json:"projects"`
	Integrations           int64 `json:"integrations"`
	Portfolios             int64 `json:"portfolios"`
	AIOptimizationsUsed    int64 `json:"aiOptimizationsUsed"`
	StorageUsedMB          int64 `json:"storageUsed"`
	BandwidthUsedMB        int64 `json:"bandwidthUsed"`
	CVGenerationsThisMonth int64 `json:"cvGenerationsThisMonth"`
}

// DefaultPlans returns the built-in plan table. The billing_plans table may override it.
func DefaultPlans() map[string]PlanLimitations {
	return map[string]PlanLimitations{
		PlanFree: {
			MaxProjects:     5,
			MaxIntegrations: 2,
			MaxPortfolios:   1,
			AIOptimizations: 0,
			StorageMB:       100,
			BandwidthMB:     1000,
		},
		PlanPro: {
			MaxProjects:     Unlimited,
			MaxIntegrations: Unlimited,
			MaxPortfolios:   Unlimited,
			AIOptimizations: 100,
			CustomDomain:    true,
			CVGeneration:    true,
			Analytics:       true,
			PrioritySupport: true,
			StorageMB:       1000,
			BandwidthMB:     10000,
		},
		PlanTeam: {
			MaxProjects:     Unlimited,
			MaxIntegrations: Unlimited,
			MaxPortfolios:   5,
			AIOptimizations: 500,
			CustomDomain:    true,
			CVGeneration:    true,
			Analytics:       true,
			PrioritySupport: true,
			StorageMB:       5000,
			BandwidthMB:     50000,
		},
	}
}

// NormalizePlanID lowercases the id and maps unknown or empty ids to free.
func NormalizePlanID(planID string) string {
	id := strings.ToLower(strings.TrimSpace(planID))
	if _, ok := DefaultPlans()[id]; ok {
		return id
	}
	return PlanFree
}

// LimitsForPlan looks planID up in the built-in table, falling back to free.
func LimitsForPlan(planID string) PlanLimitations {
	return DefaultPlans()[NormalizePlanID(planID)]
}
