package quota

import (
	"context"
	"fmt"
)

type ResourceStatus struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	Percentage float64 `json:"percentage"`
}

type FeatureStatus struct {
	CustomDomain    bool `json:"customDomain"`
	CVGeneration    bool `json:"cvGeneration"`
	Analytics       bool `json:"analytics"`
	PrioritySupport bool `json:"prioritySupport"`
}

type LimitationStatus struct {
	PlanID          string         `json:"planId"`
	Projects        ResourceStatus `json:"projects"`
	Integrations    ResourceStatus `json:"integrations"`
	Portfolios      ResourceStatus `json:"portfolios"`
	AIOptimizations ResourceStatus `json:"aiOptimizations"`
	Storage         ResourceStatus `json:"storage"`
	Features        FeatureStatus  `json:"features"`
}

// resource pins percentage to 0 for unlimited resources. A zero ceiling
// reads as full once anything is used.
func resource(used, limit int64) ResourceStatus {
	s := ResourceStatus{Used: used, Limit: limit}
	switch {
	case limit == Unlimited:
		s.Percentage = 0
	case limit == 0:
		if used > 0 {
			s.Percentage = 100
		}
	default:
		s.Percentage = float64(used) * 100 / float64(limit)
	}
	return s
}

func (g *Guard) LimitationStatus(ctx context.Context) (LimitationStatus, error) {
	usage, err := g.currentUsage(ctx)
	if err != nil {
		return LimitationStatus{}, fmt.Errorf("limitation status: %w", err)
	}
	l := g.Limits
	return LimitationStatus{
		PlanID:          g.PlanID,
		Projects:        resource(usage.Projects, l.MaxProjects),
		Integrations:    resource(usage.Integrations, l.MaxIntegrations),
		Portfolios:      resource(usage.Portfolios, l.MaxPortfolios),
		AIOptimizations: resource(usage.AIOptimizationsUsed, l.AIOptimizations),
		Storage:         resource(usage.StorageUsedMB, l.StorageMB),
		Features: FeatureStatus{
			CustomDomain:    l.CustomDomain,
			CVGeneration:    l.CVGeneration,
			Analytics:       l.Analytics,
			PrioritySupport: l.PrioritySupport,
		},
	}, nil
}
