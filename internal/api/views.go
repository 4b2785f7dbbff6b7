package api

import (
	"time"

	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/grid"
	"example.com/processmap/internal/observability"
	"example.com/processmap/internal/persistence"
)

// SizingView is one t-shirt sized input.
type SizingView struct {
	Size     string   `json:"size,omitempty"`
	Midpoint *float64 `json:"midpoint,omitempty"`
	Custom   *float64 `json:"custom,omitempty"`
}

// CostsView carries the derived labour costs.
type CostsView struct {
	MonthlyCost  float64 `json:"monthly_cost"`
	AnnualCost   float64 `json:"annual_cost"`
	CostPerTask  float64 `json:"cost_per_task"`
	TasksPerHour float64 `json:"tasks_per_hour"`
}

// ActivityView is the API representation of an activity.
type ActivityView struct {
	ID                      int64               `json:"id"`
	WorkflowID              int64               `json:"workflow_id"`
	Name                    string              `json:"activity_name"`
	Type                    string              `json:"activity_type"`
	Description             string              `json:"description,omitempty"`
	GridLocation            string              `json:"grid_location"`
	Connections             []grid.Link         `json:"connections"`
	ConnectionsMalformed    bool                `json:"connections_malformed,omitempty"`
	ConnectionsRaw          string              `json:"connections_raw,omitempty"`
	Status                  string              `json:"status"`
	TaskTime                SizingView          `json:"task_time"`
	LaborRate               SizingView          `json:"labor_rate"`
	Volume                  SizingView          `json:"volume"`
	TargetCycleTimeHours    *float64            `json:"target_cycle_time_hours,omitempty"`
	ActualCycleTimeHours    *float64            `json:"actual_cycle_time_hours,omitempty"`
	DispositionCompletePct  *float64            `json:"disposition_complete_pct,omitempty"`
	DispositionForwardedPct *float64            `json:"disposition_forwarded_pct,omitempty"`
	DispositionPendedPct    *float64            `json:"disposition_pended_pct,omitempty"`
	TransformationPlan      string              `json:"transformation_plan,omitempty"`
	Phase                   *int                `json:"phase,omitempty"`
	CostToChange            *float64            `json:"cost_to_change,omitempty"`
	ProjectedAnnualSavings  *float64            `json:"projected_annual_savings,omitempty"`
	Comments                string              `json:"comments,omitempty"`
	DataConfidence          string              `json:"data_confidence,omitempty"`
	DataSource              string              `json:"data_source,omitempty"`
	EngagementID            string              `json:"engagement_id,omitempty"`
	Swimlane                string              `json:"swimlane,omitempty"`
	ProcessSteps            string              `json:"process_steps,omitempty"`
	SystemsTouched          string              `json:"systems_touched,omitempty"`
	ConstraintsRules        string              `json:"constraints_rules,omitempty"`
	Opportunities           string              `json:"opportunities,omitempty"`
	NextSteps               string              `json:"next_steps,omitempty"`
	Attachments             []domain.Attachment `json:"attachments"`
	Costs                   *CostsView          `json:"costs,omitempty"`
	CreatedAt               time.Time           `json:"created_at"`
	CreatedBy               string              `json:"created_by"`
	ModifiedAt              *time.Time          `json:"modified_at,omitempty"`
	ModifiedBy              string              `json:"modified_by,omitempty"`
}

// WorkflowView is the API representation of a workflow.
type WorkflowView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SwimlaneView is the API representation of a swimlane.
type SwimlaneView struct {
	ID           int64  `json:"id"`
	WorkflowID   int64  `json:"workflow_id"`
	Letter       string `json:"letter"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
}

// WorkflowMapView is a workflow with everything placed on it.
type WorkflowMapView struct {
	Workflow   WorkflowView   `json:"workflow"`
	Activities []ActivityView `json:"activities"`
	Swimlanes  []SwimlaneView `json:"swimlanes"`
}

// ShiftView reports a row shift.
type ShiftView struct {
	WorkflowID  int64             `json:"workflow_id"`
	Row         string            `json:"row"`
	FromColumn  int               `json:"from_column"`
	Count       int               `json:"count"`
	Relocations []grid.Relocation `json:"relocations"`
	Relinked    []int64           `json:"relinked"`
}

// PlacementView reports the outcome of a placement.
type PlacementView struct {
	Resolution string        `json:"resolution"`
	Cancelled  bool          `json:"cancelled"`
	Activity   *ActivityView `json:"activity,omitempty"`
	Shift      *ShiftView    `json:"shift,omitempty"`
	Replaced   *ActivityView `json:"replaced,omitempty"`
}

// AuditEntryView is one audit row.
type AuditEntryView struct {
	ID         int64     `json:"id"`
	ActivityID int64     `json:"activity_id"`
	Action     string    `json:"action"`
	Field      *string   `json:"field,omitempty"`
	OldValue   *string   `json:"old_value,omitempty"`
	NewValue   *string   `json:"new_value,omitempty"`
	Actor      string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
}

// TshirtSizeView is one configured size.
type TshirtSizeView struct {
	Size     string  `json:"size"`
	Label    string  `json:"label"`
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`
	Midpoint float64 `json:"midpoint"`
	Unit     string  `json:"unit"`
}

func toActivityView(a domain.Activity) ActivityView {
	links, linksErr := a.Links()
	if links == nil {
		links = []grid.Link{}
	}
	attachments, err := domain.DecodeAttachments(a.Attachments)
	if err != nil || attachments == nil {
		attachments = []domain.Attachment{}
	}
	view := ActivityView{
		ID:                      a.ID,
		WorkflowID:              a.WorkflowID,
		Name:                    a.Name,
		Type:                    string(a.Type),
		Description:             a.Description,
		GridLocation:            a.GridLocation,
		Connections:             links,
		Status:                  string(a.Status),
		TaskTime:                toSizingView(a.TaskTime),
		LaborRate:               toSizingView(a.LaborRate),
		Volume:                  toSizingView(a.Volume),
		TargetCycleTimeHours:    a.TargetCycleTimeHours,
		ActualCycleTimeHours:    a.ActualCycleTimeHours,
		DispositionCompletePct:  a.DispositionCompletePct,
		DispositionForwardedPct: a.DispositionForwardedPct,
		DispositionPendedPct:    a.DispositionPendedPct,
		TransformationPlan:      string(a.TransformationPlan),
		Phase:                   a.Phase,
		CostToChange:            a.CostToChange,
		ProjectedAnnualSavings:  a.ProjectedAnnualSavings,
		Comments:                a.Comments,
		DataConfidence:          string(a.DataConfidence),
		DataSource:              a.DataSource,
		EngagementID:            a.EngagementID,
		Swimlane:                a.Swimlane,
		ProcessSteps:            a.ProcessSteps,
		SystemsTouched:          a.SystemsTouched,
		ConstraintsRules:        a.ConstraintsRules,
		Opportunities:           a.Opportunities,
		NextSteps:               a.NextSteps,
		Attachments:             attachments,
		CreatedAt:               a.CreatedAt,
		CreatedBy:               a.CreatedBy,
		ModifiedAt:              a.ModifiedAt,
		ModifiedBy:              a.ModifiedBy,
	}
	if linksErr != nil {
		// The stored payload is returned verbatim so a client can repair it
		// instead of overwriting it with an empty list.
		view.ConnectionsMalformed = true
		view.ConnectionsRaw = a.Connections
		observability.RecordMalformedLinks()
	}
	if costs := domain.CalculateCosts(a); costs != nil {
		view.Costs = &CostsView{
			MonthlyCost:  costs.MonthlyCost,
			AnnualCost:   costs.AnnualCost,
			CostPerTask:  costs.CostPerTask,
			TasksPerHour: costs.TasksPerHour,
		}
	}
	return view
}

func toActivityViews(activities []domain.Activity) []ActivityView {
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, toActivityView(a))
	}
	return views
}

func toSizingView(s domain.Sizing) SizingView {
	return SizingView{Size: s.Size, Midpoint: s.Midpoint, Custom: s.Custom}
}

func toWorkflowView(w domain.Workflow) WorkflowView {
	return WorkflowView{ID: w.ID, Name: w.Name, Description: w.Description, CreatedAt: w.CreatedAt}
}

func toSwimlaneViews(lanes []domain.Swimlane) []SwimlaneView {
	views := make([]SwimlaneView, 0, len(lanes))
	for _, l := range lanes {
		views = append(views, toSwimlaneView(l))
	}
	return views
}

func toSwimlaneView(l domain.Swimlane) SwimlaneView {
	return SwimlaneView{
		ID:           l.ID,
		WorkflowID:   l.WorkflowID,
		Letter:       l.Letter,
		Name:         l.Name,
		DisplayOrder: l.DisplayOrder,
	}
}

func toShiftView(o domain.ShiftOutcome) ShiftView {
	view := ShiftView{
		WorkflowID:  o.WorkflowID,
		Row:         o.Row,
		FromColumn:  o.FromColumn,
		Count:       o.Count(),
		Relocations: o.Relocations,
		Relinked:    o.Relinked,
	}
	if view.Relocations == nil {
		view.Relocations = []grid.Relocation{}
	}
	if view.Relinked == nil {
		view.Relinked = []int64{}
	}
	return view
}

func toPlacementView(r domain.PlacementResult) PlacementView {
	view := PlacementView{Resolution: string(r.Resolution), Cancelled: r.Cancelled}
	if r.Activity != nil {
		a := toActivityView(*r.Activity)
		view.Activity = &a
	}
	if r.Shift != nil {
		s := toShiftView(*r.Shift)
		view.Shift = &s
	}
	if r.Replaced != nil {
		replaced := toActivityView(*r.Replaced)
		view.Replaced = &replaced
	}
	return view
}

func toAuditPage(entries []domain.AuditEntry, next *domain.AuditCursor) map[string]any {
	views := make([]AuditEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, AuditEntryView{
			ID:         e.ID,
			ActivityID: e.ActivityID,
			Action:     string(e.Action),
			Field:      e.Field,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			Actor:      e.Actor,
			ChangedAt:  e.ChangedAt,
		})
	}
	resp := map[string]any{"entries": views}
	if next != nil {
		resp["next_cursor"] = persistence.EncodeCursor(next)
	}
	return resp
}

func toTshirtConfigView(cfg domain.TshirtConfig) map[string][]TshirtSizeView {
	view := make(map[string][]TshirtSizeView, len(cfg))
	for category, sizes := range cfg {
		entries := make([]TshirtSizeView, 0, len(sizes))
		for _, s := range sizes {
			entries = append(entries, TshirtSizeView{
				Size:     s.Size,
				Label:    s.Label,
				MinValue: s.MinValue,
				MaxValue: s.MaxValue,
				Midpoint: s.Midpoint,
				Unit:     s.Unit,
			})
		}
		view[category] = entries
	}
	return view
}
