// Package grid implements process-map cell addressing and the row shift used
// to make room for an activity inserted into an occupied cell.
package grid

import (
	"strconv"
)

// Location addresses one cell of a workflow's process map, e.g. C4.
type Location struct {
	Row    string
	Column int
}

// String renders the location as row letters followed by the column number.
func (l Location) String() string {
	return Format(l.Row, l.Column)
}

// Format concatenates row and column without separator or leading zeros.
func Format(row string, column int) string {
	return row + strconv.Itoa(column)
}

// Parse splits "C4"-style labels into row and column. Anything that is not one
// or more uppercase letters followed by a positive column without leading
// zeros reports ok=false.
func Parse(s string) (Location, bool) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return Location{}, false
	}

	digits := s[i:]
	if digits[0] == '0' {
		return Location{}, false
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return Location{}, false
		}
	}

	column, err := strconv.Atoi(digits)
	if err != nil {
		return Location{}, false
	}
	return Location{Row: s[:i], Column: column}, true
}
