package api

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/grid"
)

var validatorUtil = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// gridloc accepts placement locations: one row letter A-J and a column
	// without leading zeros.
	if err := v.RegisterValidation("gridloc", func(fl validator.FieldLevel) bool {
		_, err := domain.ParsePlacement(domain.NormalizeLocation(fl.Field().String()))
		return err == nil
	}); err != nil {
		panic(err)
	}
	// linktarget only checks the location shape. A link may point at a cell
	// outside the placement rows or at nothing at all.
	if err := v.RegisterValidation("linktarget", func(fl validator.FieldLevel) bool {
		_, ok := grid.Parse(domain.NormalizeLocation(fl.Field().String()))
		return ok
	}); err != nil {
		panic(err)
	}
	return v
}

// validate runs struct tag validation and reports failures as
// domain.ErrValidation so they share the 400 mapping with service errors.
func validate(req any) error {
	err := validatorUtil.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrapf(domain.ErrValidation, "%v", err)
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, describeFieldError(fe))
	}
	return errors.Wrapf(domain.ErrValidation, "%s", strings.Join(details, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gridloc":
		return fmt.Sprintf("%s %q is not a grid location (row A-J then column, e.g. C4)", field, fe.Value())
	case "linktarget":
		return fmt.Sprintf("%s %q is not a location (letters then column, e.g. Z99)", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt", "gte", "lt", "lte", "max", "min", "len":
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// fieldPath renders the JSON path of a failed field without the request
// type and embedded struct segments.
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	parts = slices.DeleteFunc(parts, func(p string) bool { return p == "activityRequest" })
	return strings.Join(parts, ".")
}

type sizingRequest struct {
	Size     string   `json:"size" validate:"max=20"`
	Midpoint *float64 `json:"midpoint" validate:"omitempty,gte=0"`
	Custom   *float64 `json:"custom" validate:"omitempty,gte=0"`
}

func (s sizingRequest) toDomain() domain.Sizing {
	return domain.Sizing{Size: strings.TrimSpace(s.Size), Midpoint: s.Midpoint, Custom: s.Custom}
}

type attachmentRequest struct {
	Name string `json:"name" validate:"required_without=URL,max=255"`
	URL  string `json:"url" validate:"omitempty,url"`
}

type linkRequest struct {
	Condition string `json:"condition"`
	Next      string `json:"next" validate:"required,linktarget"`
}

// activityRequest is the editable body shared by create and update.
type activityRequest struct {
	Name                    string              `json:"activity_name" validate:"required,max=255"`
	Type                    string              `json:"activity_type" validate:"omitempty,oneof=task decision"`
	Description             string              `json:"description"`
	GridLocation            string              `json:"grid_location" validate:"required,gridloc"`
	Connections             []linkRequest       `json:"connections" validate:"omitempty,dive"`
	Status                  string              `json:"status" validate:"omitempty,oneof=not_started in_progress complete"`
	TaskTime                sizingRequest       `json:"task_time"`
	LaborRate               sizingRequest       `json:"labor_rate"`
	Volume                  sizingRequest       `json:"volume"`
	TargetCycleTimeHours    *float64            `json:"target_cycle_time_hours" validate:"omitempty,gte=0"`
	ActualCycleTimeHours    *float64            `json:"actual_cycle_time_hours" validate:"omitempty,gte=0"`
	DispositionCompletePct  *float64            `json:"disposition_complete_pct" validate:"omitempty,gte=0,lte=100"`
	DispositionForwardedPct *float64            `json:"disposition_forwarded_pct" validate:"omitempty,gte=0,lte=100"`
	DispositionPendedPct    *float64            `json:"disposition_pended_pct" validate:"omitempty,gte=0,lte=100"`
	TransformationPlan      string              `json:"transformation_plan" validate:"omitempty,oneof=eliminate automate optimize"`
	Phase                   *int                `json:"phase" validate:"omitempty,gte=0"`
	CostToChange            *float64            `json:"cost_to_change" validate:"omitempty,gte=0"`
	ProjectedAnnualSavings  *float64            `json:"projected_annual_savings"`
	Comments                string              `json:"comments"`
	DataConfidence          string              `json:"data_confidence" validate:"omitempty,oneof=estimate partial confirmed"`
	DataSource              string              `json:"data_source"`
	EngagementID            string              `json:"engagement_id" validate:"max=64"`
	Swimlane                string              `json:"swimlane" validate:"max=100"`
	ProcessSteps            string              `json:"process_steps"`
	SystemsTouched          string              `json:"systems_touched" validate:"max=500"`
	ConstraintsRules        string              `json:"constraints_rules"`
	Opportunities           string              `json:"opportunities"`
	NextSteps               string              `json:"next_steps"`
	Attachments             []attachmentRequest `json:"attachments" validate:"omitempty,dive"`
}

func (r activityRequest) toDomain() (domain.Activity, error) {
	links := make([]grid.Link, 0, len(r.Connections))
	for _, l := range r.Connections {
		links = append(links, grid.Link{
			Condition: strings.TrimSpace(l.Condition),
			Next:      domain.NormalizeLocation(l.Next),
		})
	}
	connections, err := grid.EncodeLinks(links)
	if err != nil {
		return domain.Activity{}, errors.Wrapf(domain.ErrValidation, "connections: %v", err)
	}
	docs := make([]domain.Attachment, 0, len(r.Attachments))
	for _, d := range r.Attachments {
		docs = append(docs, domain.Attachment{Name: strings.TrimSpace(d.Name), URL: strings.TrimSpace(d.URL)})
	}
	attachments, err := domain.EncodeAttachments(docs)
	if err != nil {
		return domain.Activity{}, errors.Wrapf(domain.ErrValidation, "attachments: %v", err)
	}
	return domain.Activity{
		Name:                    r.Name,
		Type:                    domain.ActivityType(r.Type),
		Description:             r.Description,
		GridLocation:            r.GridLocation,
		Connections:             connections,
		Status:                  domain.ActivityStatus(r.Status),
		TaskTime:                r.TaskTime.toDomain(),
		LaborRate:               r.LaborRate.toDomain(),
		Volume:                  r.Volume.toDomain(),
		TargetCycleTimeHours:    r.TargetCycleTimeHours,
		ActualCycleTimeHours:    r.ActualCycleTimeHours,
		DispositionCompletePct:  r.DispositionCompletePct,
		DispositionForwardedPct: r.DispositionForwardedPct,
		DispositionPendedPct:    r.DispositionPendedPct,
		TransformationPlan:      domain.TransformationPlan(r.TransformationPlan),
		Phase:                   r.Phase,
		CostToChange:            r.CostToChange,
		ProjectedAnnualSavings:  r.ProjectedAnnualSavings,
		Comments:                r.Comments,
		DataConfidence:          domain.DataConfidence(r.DataConfidence),
		DataSource:              r.DataSource,
		EngagementID:            r.EngagementID,
		Swimlane:                r.Swimlane,
		ProcessSteps:            r.ProcessSteps,
		SystemsTouched:          r.SystemsTouched,
		ConstraintsRules:        r.ConstraintsRules,
		Opportunities:           r.Opportunities,
		NextSteps:               r.NextSteps,
		Attachments:             attachments,
	}, nil
}

// PlaceActivityRequest creates an activity, optionally resolving a conflict
// on its target cell.
type PlaceActivityRequest struct {
	WorkflowID int64  `json:"workflow_id" validate:"gt=0"`
	Resolution string `json:"resolution" validate:"omitempty,oneof=insert replace cancel"`
	activityRequest
}

// UpdateActivityRequest replaces an activity's editable fields.
type UpdateActivityRequest struct {
	activityRequest
}

// MoveActivityRequest relocates an activity to a vacant cell.
type MoveActivityRequest struct {
	GridLocation string `json:"grid_location" validate:"required,gridloc"`
}

// ShiftRowRequest vacates a cell by shifting its row right.
type ShiftRowRequest struct {
	Row        string `json:"row" validate:"required,len=1,alpha"`
	FromColumn int    `json:"from_column" validate:"gt=0"`
}

// WorkflowRequest creates or renames a workflow.
type WorkflowRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// SwimlaneRequest creates or renames the swimlane of a row.
type SwimlaneRequest struct {
	Letter       string `json:"letter" validate:"required,len=1,alpha"`
	Name         string `json:"name" validate:"required,max=255"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// SessionRequest applies one editor event to the state carried in Token.
type SessionRequest struct {
	Token string       `json:"token"`
	Event sessionEvent `json:"event"`
}

type sessionEvent struct {
	Action     string               `json:"action" validate:"required,oneof=new edit cancel saved request_delete cancel_delete confirm_delete conflict resolve"`
	ActivityID *int64               `json:"activity_id" validate:"omitempty,gt=0"`
	Conflict   *sessionConflictBody `json:"conflict"`
	Resolution string               `json:"resolution" validate:"omitempty,oneof=insert replace cancel"`
}

type sessionConflictBody struct {
	Location     string `json:"location" validate:"required,gridloc"`
	OccupantID   int64  `json:"occupant_id" validate:"gt=0"`
	OccupantName string `json:"occupant_name"`
}
