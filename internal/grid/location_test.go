package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAcceptsRowAndColumn(t *testing.T) {
	cases := map[string]Location{
		"A1":    {Row: "A", Column: 1},
		"C4":    {Row: "C", Column: 4},
		"J12":   {Row: "J", Column: 12},
		"AB105": {Row: "AB", Column: 105},
	}
	for input, want := range cases {
		got, ok := Parse(input)
		require.True(t, ok, input)
		require.Equal(t, want, got, input)
	}
}

func TestParseRejectsMalformedLabels(t *testing.T) {
	for _, input := range []string{"", "A", "4", "c4", "C4A", "C-4", " C4", "C04", "C0", "4C"} {
		loc, ok := Parse(input)
		require.False(t, ok, input)
		require.Equal(t, Location{}, loc, input)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, row := range []string{"A", "F", "J", "Z", "AA", "ZZ"} {
		for _, column := range []int{1, 2, 9, 10, 99, 1000} {
			label := Format(row, column)
			loc, ok := Parse(label)
			require.True(t, ok, label)
			require.Equal(t, Location{Row: row, Column: column}, loc)
			require.Equal(t, label, loc.String())
		}
	}
}
