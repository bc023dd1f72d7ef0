package quota

import "fmt"

// PlanLimitationError carries enough to render an upgrade prompt without re-querying.
type PlanLimitationError struct {
	Action       Action `json:"action"`
	PlanID       string `json:"planId"`
	Reason       string `json:"message"`
	CurrentUsage *int64 `json:"currentUsage,omitempty"`
	Limit        *int64 `json:"limit,omitempty"`
}

func (e *PlanLimitationError) Error() string {
	if e.Limit != nil && e.CurrentUsage != nil {
		return fmt.Sprintf("plan %s: %s (action=%s used=%d limit=%d)", e.PlanID, e.Reason, e.Action, *e.CurrentUsage, *e.Limit)
	}
	return fmt.Sprintf("plan %s: %s (action=%s)", e.PlanID, e.Reason, e.Action)
}
