package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// ErrMalformedKey is returned when a cell identifier cannot be parsed.
var ErrMalformedKey = errors.New("malformed cell identifier")

// RowKey identifies one row of the grid. Assignment 0 is the task-level row.
type RowKey struct {
	Task       int
	Assignment int
}

// String renders the row as used in wire records: "7_" or "7_12".
func (r RowKey) String() string {
	if r.Assignment == 0 {
		return strconv.Itoa(r.Task) + "_"
	}
	return strconv.Itoa(r.Task) + "_" + strconv.Itoa(r.Assignment)
}

// CellKey identifies one cell of one timesheet.
type CellKey struct {
	Timesheet  int
	Task       int
	Assignment int
	Day        string
}

// Row returns the row the cell belongs to.
func (k CellKey) Row() RowKey {
	return RowKey{Task: k.Task, Assignment: k.Assignment}
}

// String renders the stable identifier, e.g. "cell42_7__20240101".
func (k CellKey) String() string {
	return fmt.Sprintf("cell%d_%s_%s", k.Timesheet, k.Row(), k.Day)
}

// ParseCellKey parses an identifier produced by CellKey.String.
func ParseCellKey(s string) (CellKey, error) {
	rest, ok := strings.CutPrefix(s, "cell")
	if !ok {
		return CellKey{}, fmt.Errorf("%w: %q lacks the cell prefix", ErrMalformedKey, s)
	}
	parts := strings.Split(rest, "_")
	if len(parts) != 4 {
		return CellKey{}, fmt.Errorf("%w: %q has %d parts, want 4", ErrMalformedKey, s, len(parts))
	}

	var k CellKey
	var err error
	if k.Timesheet, err = parseID(parts[0], false); err != nil {
		return CellKey{}, fmt.Errorf("%w: %q timesheet: %v", ErrMalformedKey, s, err)
	}
	row, err := parseRow(parts[1], parts[2])
	if err != nil {
		return CellKey{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
	}
	k.Task, k.Assignment = row.Task, row.Assignment
	if _, err := timecalc.ParseDay(parts[3]); err != nil {
		return CellKey{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
	}
	k.Day = parts[3]
	return k, nil
}

func parseRow(task, assignment string) (RowKey, error) {
	t, err := parseID(task, false)
	if err != nil {
		return RowKey{}, fmt.Errorf("task: %w", err)
	}
	a, err := parseID(assignment, true)
	if err != nil {
		return RowKey{}, fmt.Errorf("assignment: %w", err)
	}
	return RowKey{Task: t, Assignment: a}, nil
}

// parseID reads a positive decimal id. Empty is accepted as 0 when optional.
func parseID(s string, optional bool) (int, error) {
	if s == "" {
		if optional {
			return 0, nil
		}
		return 0, errors.New("missing id")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || strconv.Itoa(n) != s {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return n, nil
}
