package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordShiftIgnoresNoops(t *testing.T) {
	before := testutil.ToFloat64(rowShifts)
	RecordShift(0)
	require.Equal(t, before, testutil.ToFloat64(rowShifts))

	RecordShift(3)
	require.Equal(t, before+1, testutil.ToFloat64(rowShifts))
}

func TestRecordPlacementByResolution(t *testing.T) {
	before := testutil.ToFloat64(placements.WithLabelValues("insert"))
	RecordPlacement("insert")
	require.Equal(t, before+1, testutil.ToFloat64(placements.WithLabelValues("insert")))
}

func TestRecordMutationSetsWatermark(t *testing.T) {
	ts := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	RecordMutation(ts)
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastMutationGauge))

	RecordMutation(time.Time{})
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastMutationGauge))
}
