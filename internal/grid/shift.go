package grid

import (
	"cmp"
	"slices"
)

// Cell is the engine's view of a placed activity.
type Cell struct {
	ID       int64
	Location string
	Links    []Link
}

// Relocation records one activity moving one column to the right.
type Relocation struct {
	ActivityID int64  `json:"activity_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// ShiftResult describes everything Shift changed.
type ShiftResult struct {
	// Relocations are ordered by descending source column, the order in
	// which they must be written.
	Relocations []Relocation
	// Relinked lists the cells whose links were rewritten.
	Relinked []int64
}

// Count is the number of relocated activities.
func (r ShiftResult) Count() int {
	return len(r.Relocations)
}

// Moved reports whether the cell with the given id was relocated.
func (r ShiftResult) Moved(id int64) bool {
	return slices.ContainsFunc(r.Relocations, func(rel Relocation) bool { return rel.ActivityID == id })
}

// HasRelinked reports whether the cell with the given id had links rewritten.
func (r ShiftResult) HasRelinked(id int64) bool {
	return slices.Contains(r.Relinked, id)
}

// Shift vacates column fromColumn of row by moving every cell in that row at
// or after the column one position right, then rewrites every link across
// all cells that targeted a moved cell. Cells are mutated in place.
func Shift(cells []Cell, row string, fromColumn int) ShiftResult {
	var result ShiftResult
	if fromColumn < 1 {
		return result
	}

	type candidate struct {
		index int
		loc   Location
	}
	selected := make([]candidate, 0)
	for i, cell := range cells {
		loc, ok := Parse(cell.Location)
		if !ok || loc.Row != row || loc.Column < fromColumn {
			continue
		}
		selected = append(selected, candidate{index: i, loc: loc})
	}
	if len(selected) == 0 {
		return result
	}

	// Highest column first so every write target is already vacated.
	slices.SortStableFunc(selected, func(a, b candidate) int {
		return cmp.Compare(b.loc.Column, a.loc.Column)
	})

	moved := make(map[string]string, len(selected))
	for _, c := range selected {
		from := cells[c.index].Location
		to := Format(row, c.loc.Column+1)
		cells[c.index].Location = to
		moved[from] = to
		result.Relocations = append(result.Relocations, Relocation{
			ActivityID: cells[c.index].ID,
			From:       from,
			To:         to,
		})
	}

	for i := range cells {
		rewritten := false
		for j, link := range cells[i].Links {
			if to, ok := moved[link.Next]; ok {
				cells[i].Links[j].Next = to
				rewritten = true
			}
		}
		if rewritten {
			result.Relinked = append(result.Relinked, cells[i].ID)
		}
	}

	return result
}
