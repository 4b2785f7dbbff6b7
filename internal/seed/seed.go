// Package seed holds the reference sizing configuration and the sample
// insurance underwriting workflow used for demos and local development.
package seed

import (
	"context"
	"errors"
	"fmt"

	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/grid"
)

// TshirtSizes returns the global sizing configuration ordered by category
// and minimum value.
func TshirtSizes() []domain.TshirtSize {
	return []domain.TshirtSize{
		{Category: domain.CategoryLaborRate, Size: "L", Label: "Low", MinValue: 20, MaxValue: 30, Midpoint: 25, Unit: "$/hour"},
		{Category: domain.CategoryLaborRate, Size: "M", Label: "Medium", MinValue: 30, MaxValue: 50, Midpoint: 40, Unit: "$/hour"},
		{Category: domain.CategoryLaborRate, Size: "H", Label: "High", MinValue: 50, MaxValue: 70, Midpoint: 60, Unit: "$/hour"},
		{Category: domain.CategoryLaborRate, Size: "XH", Label: "Extra High", MinValue: 70, MaxValue: 100, Midpoint: 85, Unit: "$/hour"},

		{Category: domain.CategoryTaskTime, Size: "XS", Label: "Extra Small", MinValue: 0, MaxValue: 2, Midpoint: 1, Unit: "minutes"},
		{Category: domain.CategoryTaskTime, Size: "S", Label: "Small", MinValue: 2, MaxValue: 4, Midpoint: 3, Unit: "minutes"},
		{Category: domain.CategoryTaskTime, Size: "M", Label: "Medium", MinValue: 5, MaxValue: 10, Midpoint: 7.5, Unit: "minutes"},
		{Category: domain.CategoryTaskTime, Size: "L", Label: "Large", MinValue: 15, MaxValue: 30, Midpoint: 22.5, Unit: "minutes"},
		{Category: domain.CategoryTaskTime, Size: "XL", Label: "Extra Large", MinValue: 30, MaxValue: 60, Midpoint: 45, Unit: "minutes"},
		{Category: domain.CategoryTaskTime, Size: "XXL", Label: "Double Extra Large", MinValue: 60, MaxValue: 120, Midpoint: 90, Unit: "minutes"},

		{Category: domain.CategoryVolume, Size: "XS", Label: "Extra Small", MinValue: 0, MaxValue: 50, Midpoint: 25, Unit: "per month"},
		{Category: domain.CategoryVolume, Size: "S", Label: "Small", MinValue: 50, MaxValue: 100, Midpoint: 75, Unit: "per month"},
		{Category: domain.CategoryVolume, Size: "M", Label: "Medium", MinValue: 100, MaxValue: 500, Midpoint: 300, Unit: "per month"},
		{Category: domain.CategoryVolume, Size: "L", Label: "Large", MinValue: 500, MaxValue: 1000, Midpoint: 750, Unit: "per month"},
		{Category: domain.CategoryVolume, Size: "XL", Label: "Extra Large", MinValue: 1000, MaxValue: 3000, Midpoint: 2000, Unit: "per month"},
		{Category: domain.CategoryVolume, Size: "XXL", Label: "Double Extra Large", MinValue: 5000, MaxValue: 10000, Midpoint: 7500, Unit: "per month"},
	}
}

// Swimlanes are the row labels of the sample workflow.
func Swimlanes() []domain.Swimlane {
	return []domain.Swimlane{
		{Letter: "A", Name: "Customer", DisplayOrder: 0},
		{Letter: "B", Name: "Intake", DisplayOrder: 1},
		{Letter: "C", Name: "Auto", DisplayOrder: 2},
		{Letter: "D", Name: "Home", DisplayOrder: 3},
		{Letter: "E", Name: "Boat", DisplayOrder: 4},
		{Letter: "F", Name: "Escalation", DisplayOrder: 5},
		{Letter: "G", Name: "Outbound Correspondence", DisplayOrder: 6},
	}
}

type sample struct {
	location  string
	name      string
	kind      domain.ActivityType
	taskTime  string
	laborRate string
	volume    string
	links     []grid.Link
}

func next(location string) []grid.Link {
	return []grid.Link{{Next: location}}
}

func decide(approve, decline, escalate string) []grid.Link {
	links := []grid.Link{{Condition: "Approve", Next: approve}, {Condition: "Decline", Next: decline}}
	if escalate != "" {
		links = append(links, grid.Link{Condition: "Escalate", Next: escalate})
	}
	return links
}

var samples = []sample{
	{"C4", "Auto Intake Review", domain.ActivityTypeTask, "M", "M", "L", next("C5")},
	{"C5", "Pull MVR Report", domain.ActivityTypeTask, "S", "M", "L", next("C6")},
	{"C6", "Auto Risk Assessment", domain.ActivityTypeTask, "L", "H", "L", next("C7")},
	{"C7", "Auto Determination", domain.ActivityTypeDecision, "M", "H", "L", decide("C8", "C8", "F4")},
	{"C8", "Draft Auto Letter", domain.ActivityTypeTask, "M", "M", "L", next("G10")},

	{"D4", "Home Intake Review", domain.ActivityTypeTask, "M", "M", "L", next("D5")},
	{"D5", "Request Property Appraisal", domain.ActivityTypeTask, "S", "M", "L", next("D6")},
	{"D6", "Review Photos & Documentation", domain.ActivityTypeTask, "L", "M", "L", next("D7")},
	{"D7", "Home Risk Assessment", domain.ActivityTypeTask, "XL", "H", "L", next("D8")},
	{"D8", "Home Determination", domain.ActivityTypeDecision, "M", "H", "L", decide("D9", "D9", "F4")},
	{"D9", "Draft Home Letter", domain.ActivityTypeTask, "M", "M", "L", next("G10")},

	{"E4", "Boat Intake Review", domain.ActivityTypeTask, "M", "M", "M", next("E5")},
	{"E5", "Marine Benchmarking", domain.ActivityTypeTask, "L", "H", "M", next("E6")},
	{"E6", "Boat Condition Assessment", domain.ActivityTypeTask, "L", "H", "M", next("E7")},
	{"E7", "Boat Determination", domain.ActivityTypeDecision, "M", "H", "M", decide("E8", "E8", "F4")},
	{"E8", "Draft Boat Letter", domain.ActivityTypeTask, "M", "M", "M", next("G10")},

	{"F4", "Escalated Intake Review", domain.ActivityTypeTask, "L", "H", "S", next("F5")},
	{"F5", "Proactive Customer Outreach", domain.ActivityTypeTask, "L", "H", "S", next("F6")},
	{"F6", "Legal/Compliance Review", domain.ActivityTypeTask, "XL", "XH", "S", next("F7")},
	{"F7", "Senior Underwriter Review", domain.ActivityTypeTask, "XL", "XH", "S", next("F8")},
	{"F8", "Escalated Determination", domain.ActivityTypeDecision, "L", "XH", "S", decide("F9", "F9", "")},
	{"F9", "Draft Escalated Letter", domain.ActivityTypeTask, "L", "H", "S", next("G10")},

	{"G10", "Letter Quality Review", domain.ActivityTypeTask, "S", "M", "XL", next("G11")},
	{"G11", "Print & Assemble", domain.ActivityTypeTask, "S", "L", "XL", next("G12")},
	{"G12", "Mail Preparation", domain.ActivityTypeTask, "S", "L", "XL", next("G13")},
	{"G13", "Outbound Mail Dispatch", domain.ActivityTypeTask, "S", "L", "XL", nil},
}

// Activities returns the sample activities for workflowID. Midpoints are
// left empty so placement fills them from the sizing configuration.
func Activities(workflowID int64) ([]domain.Activity, error) {
	out := make([]domain.Activity, 0, len(samples))
	for _, s := range samples {
		connections, err := grid.EncodeLinks(s.links)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Activity{
			WorkflowID:   workflowID,
			Name:         s.name,
			Type:         s.kind,
			GridLocation: s.location,
			Connections:  connections,
			Status:       domain.StatusNotStarted,
			TaskTime:     domain.Sizing{Size: s.taskTime},
			LaborRate:    domain.Sizing{Size: s.laborRate},
			Volume:       domain.Sizing{Size: s.volume},
		})
	}
	return out, nil
}

// Report counts what Load wrote.
type Report struct {
	Swimlanes int
	Inserted  int
	Skipped   int
}

// Load saves the sample swimlanes and places every sample activity whose
// cell is still free. Occupied cells are skipped, so Load is safe to rerun.
func Load(ctx context.Context, svc *domain.Service, workflowID int64, actor string) (Report, error) {
	var report Report
	for _, lane := range Swimlanes() {
		lane.WorkflowID = workflowID
		if _, err := svc.SaveSwimlane(ctx, lane); err != nil {
			return report, fmt.Errorf("save swimlane %s: %w", lane.Letter, err)
		}
		report.Swimlanes++
	}

	activities, err := Activities(workflowID)
	if err != nil {
		return report, err
	}
	for _, activity := range activities {
		_, err := svc.PlaceActivity(ctx, domain.PlaceActivityInput{Activity: activity, Actor: actor})
		switch {
		case errors.Is(err, domain.ErrCellOccupied):
			report.Skipped++
		case err != nil:
			return report, fmt.Errorf("place %s: %w", activity.GridLocation, err)
		default:
			report.Inserted++
		}
	}
	return report, nil
}
