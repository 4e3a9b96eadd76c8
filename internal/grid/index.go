package grid

import (
	"errors"
	"fmt"
	"time"

	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// ErrUnknownCell is returned when a key does not name a cell of the index.
var ErrUnknownCell = errors.New("no such cell")

// Cell is one (row, day) position of the grid.
type Cell struct {
	Key   CellKey
	Value string

	// Input cells accept edits; all others are static.
	Input bool
	// Expired cells lie outside their assignment's validity window.
	Expired bool
	Weekend bool
	Holiday bool
	Today   bool
}

// Row describes one grid row in display order.
type Row struct {
	Key            RowKey
	Task           string
	LaborCat       string
	Administrative bool
}

// Label is the text shown in front of the row.
func (r Row) Label() string {
	if r.LaborCat == "" {
		return r.Task
	}
	return r.Task + " (" + r.LaborCat + ")"
}

// Options carries the viewer context for Build.
type Options struct {
	// UserID is the id of the person looking at the timesheet.
	UserID int
	// Now decides which day is today and which days lie in the future.
	Now time.Time
}

// Index is the cell lookup for one displayed timesheet, together with the
// rendered totals. It is rebuilt from scratch on every load.
type Index struct {
	Timesheet int
	Days      []string
	Rows      []Row

	cells    map[CellKey]*Cell
	dayIndex map[string]int

	taskTotals map[RowKey]string
	dayTotals  map[string]string
	weekTotals map[string]string
	grand      string
}

// Build derives the cell index for ts as seen by opts.UserID at opts.Now and
// renders every total.
func Build(ts *model.Timesheet, opts Options) (*Index, error) {
	if ts == nil {
		return nil, errors.New("build index: nil timesheet")
	}
	days, err := ts.PayPeriod.Days()
	if err != nil {
		return nil, fmt.Errorf("build index for timesheet %d: %w", ts.ID, err)
	}

	idx := &Index{
		Timesheet:  ts.ID,
		Days:       days,
		cells:      make(map[CellKey]*Cell),
		dayIndex:   make(map[string]int, len(days)),
		taskTotals: make(map[RowKey]string),
		dayTotals:  make(map[string]string, len(days)),
		weekTotals: make(map[string]string),
	}
	for i, d := range days {
		idx.dayIndex[d] = i
	}

	today := timecalc.FormatDay(opts.Now)
	open := ts.User.ID == opts.UserID && !ts.Completed

	for ti := range ts.Tasks {
		task := &ts.Tasks[ti]
		if task.Administrative || len(task.Bills) > 0 {
			row := Row{Key: RowKey{Task: task.ID}, Task: task.Description, Administrative: task.Administrative}
			idx.addRow(ts, row, task.Bills, nil, open, today)
		}
		for ai := range task.Assignments {
			a := &task.Assignments[ai]
			row := Row{
				Key:            RowKey{Task: task.ID, Assignment: a.ID},
				Task:           task.Description,
				LaborCat:       a.LaborCat,
				Administrative: task.Administrative,
			}
			idx.addRow(ts, row, a.Bills, a, open, today)
		}
	}

	idx.recalcAll()
	return idx, nil
}

func (idx *Index) addRow(ts *model.Timesheet, row Row, bills []model.Bill, a *model.Assignment, open bool, today string) {
	idx.Rows = append(idx.Rows, row)
	for _, day := range idx.Days {
		key := CellKey{Timesheet: ts.ID, Task: row.Key.Task, Assignment: row.Key.Assignment, Day: day}
		c := &Cell{Key: key, Today: day == today, Holiday: ts.IsHoliday(day)}
		if t, err := timecalc.ParseDay(day); err == nil {
			c.Weekend = timecalc.IsWeekend(t)
		}
		if b := model.FindBill(bills, day); b != nil {
			c.Value = Format(b.Hours)
		}
		c.Expired = a != nil && !row.Administrative && !a.Covers(day)
		c.Input = !c.Expired && open && (row.Administrative || day <= today)
		idx.cells[key] = c
	}
}

// Cell returns the cell for key.
func (idx *Index) Cell(key CellKey) (*Cell, error) {
	c, ok := idx.cells[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCell, key)
	}
	return c, nil
}

// RowCells returns the cells of one row in day order.
func (idx *Index) RowCells(row RowKey) []*Cell {
	out := make([]*Cell, 0, len(idx.Days))
	for _, day := range idx.Days {
		if c, ok := idx.cells[CellKey{Timesheet: idx.Timesheet, Task: row.Task, Assignment: row.Assignment, Day: day}]; ok {
			out = append(out, c)
		}
	}
	return out
}

// DayCells returns the cells of one day in row order.
func (idx *Index) DayCells(day string) []*Cell {
	out := make([]*Cell, 0, len(idx.Rows))
	for _, r := range idx.Rows {
		if c, ok := idx.cells[CellKey{Timesheet: idx.Timesheet, Task: r.Key.Task, Assignment: r.Key.Assignment, Day: day}]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Len is the number of cells in the index.
func (idx *Index) Len() int { return len(idx.cells) }

// Editable reports whether any cell accepts input.
func (idx *Index) Editable() bool {
	for _, c := range idx.cells {
		if c.Input {
			return true
		}
	}
	return false
}
