package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestCalculateCostsFromMidpoints(t *testing.T) {
	costs := CalculateCosts(Activity{
		TaskTime:  Sizing{Size: "M", Midpoint: ptr(7.5)},
		LaborRate: Sizing{Size: "M", Midpoint: ptr(40)},
		Volume:    Sizing{Size: "L", Midpoint: ptr(750)},
	})
	require.NotNil(t, costs)

	effective := 7.5 / ProductivityFactor
	tasksPerHour := 60 / effective
	costPerTask := 40 / tasksPerHour
	require.InDelta(t, tasksPerHour, costs.TasksPerHour, 1e-9)
	require.InDelta(t, costPerTask, costs.CostPerTask, 1e-9)
	require.InDelta(t, costPerTask*750, costs.MonthlyCost, 1e-9)
	require.InDelta(t, costPerTask*750*12, costs.AnnualCost, 1e-9)
}

func TestCalculateCostsUsesCustomForOther(t *testing.T) {
	costs := CalculateCosts(Activity{
		TaskTime:  Sizing{Size: SizeOther, Midpoint: ptr(7.5), Custom: ptr(12)},
		LaborRate: Sizing{Size: "H", Midpoint: ptr(60)},
		Volume:    Sizing{Size: SizeOther, Custom: ptr(100)},
	})
	require.NotNil(t, costs)
	require.InDelta(t, 60/(12/ProductivityFactor), costs.TasksPerHour, 1e-9)
}

func TestCalculateCostsNeedsEveryInput(t *testing.T) {
	require.Nil(t, CalculateCosts(Activity{}))
	require.Nil(t, CalculateCosts(Activity{
		TaskTime:  Sizing{Midpoint: ptr(-1)},
		LaborRate: Sizing{Midpoint: ptr(40)},
		Volume:    Sizing{Midpoint: ptr(10)},
	}))
	require.Nil(t, CalculateCosts(Activity{
		TaskTime:  Sizing{Midpoint: ptr(3)},
		LaborRate: Sizing{Midpoint: ptr(40)},
	}))
	require.InDelta(t, 150.0, WorkHoursPerMonth, 1e-9)
}
