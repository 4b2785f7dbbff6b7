package domain

import (
	"fmt"
	"strings"
)

// normalize applies defaults and canonical casing before validation.
func normalize(a *Activity) {
	a.Name = strings.TrimSpace(a.Name)
	a.GridLocation = NormalizeLocation(a.GridLocation)
	a.Connections = strings.TrimSpace(a.Connections)
	a.EngagementID = strings.TrimSpace(a.EngagementID)
	a.Swimlane = strings.TrimSpace(a.Swimlane)
	a.Attachments = strings.TrimSpace(a.Attachments)
	if a.Type == "" {
		a.Type = ActivityTypeTask
	}
	if a.Status == "" {
		a.Status = StatusNotStarted
	}
}

func validateActivity(a Activity) error {
	if a.Name == "" {
		return invalidField("activity_name", "is required")
	}
	switch a.Type {
	case ActivityTypeTask, ActivityTypeDecision:
	default:
		return invalidField("activity_type", "must be task or decision")
	}
	switch a.Status {
	case StatusNotStarted, StatusInProgress, StatusComplete:
	default:
		return invalidField("status", "must be not_started, in_progress or complete")
	}
	switch a.TransformationPlan {
	case "", PlanEliminate, PlanAutomate, PlanOptimize:
	default:
		return invalidField("transformation_plan", "must be eliminate, automate or optimize")
	}
	switch a.DataConfidence {
	case "", ConfidenceEstimate, ConfidencePartial, ConfidenceConfirmed:
	default:
		return invalidField("data_confidence", "must be estimate, partial or confirmed")
	}

	percentages := []struct {
		name  string
		value *float64
	}{
		{"disposition_complete_pct", a.DispositionCompletePct},
		{"disposition_forwarded_pct", a.DispositionForwardedPct},
		{"disposition_pended_pct", a.DispositionPendedPct},
	}
	for _, pct := range percentages {
		if pct.value != nil && (*pct.value < 0 || *pct.value > 100) {
			return invalidField(pct.name, "must be between 0 and 100")
		}
	}

	if _, err := ParsePlacement(a.GridLocation); err != nil {
		return err
	}
	// Connections are stored verbatim; the shift tolerates malformed payloads
	// but new writes must be well formed.
	if _, err := a.Links(); err != nil {
		return invalidField("connections", "must be a JSON list of {condition, next} links")
	}
	attachments, err := DecodeAttachments(a.Attachments)
	if err != nil {
		return invalidField("attachments", "must be a JSON list of {name, url} documents")
	}
	for i, att := range attachments {
		if strings.TrimSpace(att.Name) == "" && strings.TrimSpace(att.URL) == "" {
			return invalidField(fmt.Sprintf("attachments[%d]", i), "needs a name or url")
		}
	}
	return nil
}
