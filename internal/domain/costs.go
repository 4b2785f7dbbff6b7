package domain

// Cost model constants.
const (
	ProductivityFactor   = 0.85
	HoursPerYear         = 1840
	TrainingHoursPerYear = 40
	WorkMonthsPerYear    = 12
	WorkHoursPerMonth    = float64(HoursPerYear-TrainingHoursPerYear) / WorkMonthsPerYear
)

// ActivityCosts are the derived labour costs of an activity.
type ActivityCosts struct {
	MonthlyCost  float64
	AnnualCost   float64
	CostPerTask  float64
	TasksPerHour float64
}

// CalculateCosts derives costs from task time (minutes), labour rate (per
// hour) and monthly volume. It returns nil when any input is missing or not
// positive.
func CalculateCosts(a Activity) *ActivityCosts {
	taskTime, ok := a.TaskTime.Value()
	if !ok || taskTime <= 0 {
		return nil
	}
	laborRate, ok := a.LaborRate.Value()
	if !ok || laborRate <= 0 {
		return nil
	}
	volume, ok := a.Volume.Value()
	if !ok || volume <= 0 {
		return nil
	}

	effectiveTaskTime := taskTime / ProductivityFactor
	tasksPerHour := 60 / effectiveTaskTime
	costPerTask := laborRate / tasksPerHour
	monthly := costPerTask * volume

	return &ActivityCosts{
		MonthlyCost:  monthly,
		AnnualCost:   monthly * WorkMonthsPerYear,
		CostPerTask:  costPerTask,
		TasksPerHour: tasksPerHour,
	}
}
