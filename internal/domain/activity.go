// Package domain holds the process-map model and the service that keeps a
// workflow's grid consistent while activities are placed, edited and shifted.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"example.com/processmap/internal/grid"
)

// ActivityType distinguishes plain steps from branching decisions.
type ActivityType string

const (
	ActivityTypeTask     ActivityType = "task"
	ActivityTypeDecision ActivityType = "decision"
)

// ActivityStatus tracks transformation progress for an activity.
type ActivityStatus string

const (
	StatusNotStarted ActivityStatus = "not_started"
	StatusInProgress ActivityStatus = "in_progress"
	StatusComplete   ActivityStatus = "complete"
)

// TransformationPlan is the intended change for an activity.
type TransformationPlan string

const (
	PlanEliminate TransformationPlan = "eliminate"
	PlanAutomate  TransformationPlan = "automate"
	PlanOptimize  TransformationPlan = "optimize"
)

// DataConfidence grades how reliable the sizing inputs are.
type DataConfidence string

const (
	ConfidenceEstimate  DataConfidence = "estimate"
	ConfidencePartial   DataConfidence = "partial"
	ConfidenceConfirmed DataConfidence = "confirmed"
)

// SizeOther selects the custom value instead of a configured midpoint.
const SizeOther = "Other"

// Sizing is one t-shirt sized input: the chosen size, the midpoint copied
// from configuration and an optional custom figure.
type Sizing struct {
	Size     string
	Midpoint *float64
	Custom   *float64
}

// Value returns the figure used for cost calculations.
func (s Sizing) Value() (float64, bool) {
	if s.Size == SizeOther && s.Custom != nil && *s.Custom != 0 {
		return *s.Custom, true
	}
	if s.Midpoint != nil && *s.Midpoint != 0 {
		return *s.Midpoint, true
	}
	return 0, false
}

// Activity is a node placed on a workflow's grid.
type Activity struct {
	ID           int64
	WorkflowID   int64
	Name         string
	Type         ActivityType
	Description  string
	GridLocation string
	// Connections is the persisted JSON list of outgoing links.
	Connections string
	Status      ActivityStatus

	TaskTime  Sizing
	LaborRate Sizing
	Volume    Sizing

	TargetCycleTimeHours    *float64
	ActualCycleTimeHours    *float64
	DispositionCompletePct  *float64
	DispositionForwardedPct *float64
	DispositionPendedPct    *float64
	TransformationPlan      TransformationPlan
	Phase                   *int
	CostToChange            *float64
	ProjectedAnnualSavings  *float64
	Comments                string
	DataConfidence          DataConfidence
	DataSource              string

	// EngagementID ties the activity to a client engagement; empty means
	// unassigned.
	EngagementID string
	// Swimlane is a free-text lane label kept alongside the row letter.
	Swimlane         string
	ProcessSteps     string
	SystemsTouched   string
	ConstraintsRules string
	Opportunities    string
	NextSteps        string
	// Attachments is the persisted JSON list of {name, url} documents.
	Attachments string

	CreatedAt  time.Time
	CreatedBy  string
	ModifiedAt *time.Time
	ModifiedBy string
}

// Links decodes the activity's outgoing links.
func (a Activity) Links() ([]grid.Link, error) {
	return grid.DecodeLinks(a.Connections)
}

// Attachment is a document linked from an activity card.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DecodeAttachments parses a stored attachment list. Blank means none.
func DecodeAttachments(raw string) ([]Attachment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []Attachment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeAttachments is the inverse of DecodeAttachments; an empty list
// encodes as "".
func EncodeAttachments(attachments []Attachment) (string, error) {
	if len(attachments) == 0 {
		return "", nil
	}
	b, err := json.Marshal(attachments)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ActivityFilter narrows ListActivities.
type ActivityFilter struct {
	EngagementID string
}

func (f ActivityFilter) matches(a Activity) bool {
	return f.EngagementID == "" || a.EngagementID == f.EngagementID
}

// Workflow groups activities and swimlanes into one process map.
type Workflow struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Swimlane labels one grid row of a workflow.
type Swimlane struct {
	ID           int64
	WorkflowID   int64
	Letter       string
	Name         string
	DisplayOrder int
}

// WorkflowMap is everything needed to render one workflow.
type WorkflowMap struct {
	Workflow   Workflow
	Activities []Activity
	Swimlanes  []Swimlane
}

// T-shirt size categories.
const (
	CategoryTaskTime  = "task_time"
	CategoryLaborRate = "labor_rate"
	CategoryVolume    = "volume"
)

// TshirtSize is one row of the global sizing configuration.
type TshirtSize struct {
	Category string
	Size     string
	Label    string
	MinValue float64
	MaxValue float64
	Midpoint float64
	Unit     string
}

// TshirtConfig groups sizes by category, each ordered by MinValue.
type TshirtConfig map[string][]TshirtSize

// Midpoint looks up the configured midpoint for a category and size.
func (c TshirtConfig) Midpoint(category, size string) (float64, bool) {
	for _, entry := range c[category] {
		if entry.Size == size {
			return entry.Midpoint, true
		}
	}
	return 0, false
}

// NormalizeLocation upper-cases and trims a user supplied grid location.
func NormalizeLocation(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ParsePlacement validates a location an activity may be placed on: a single
// row letter A to J followed by a positive column.
func ParsePlacement(location string) (grid.Location, error) {
	loc, ok := grid.Parse(location)
	if !ok || !ValidRow(loc.Row) {
		return grid.Location{}, invalidLocation(location)
	}
	return loc, nil
}

// ValidRow reports whether row is one of the placement rows A to J.
func ValidRow(row string) bool {
	return len(row) == 1 && row[0] >= 'A' && row[0] <= 'J'
}
