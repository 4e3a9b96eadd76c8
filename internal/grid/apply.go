package grid

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Tiliavir/timegrid/internal/model"
)

// ChangeKind classifies one bill change between a document and a payload.
type ChangeKind int

const (
	Added ChangeKind = iota
	Updated
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is one bill that differs between a timesheet and a payload.
type Change struct {
	Kind     ChangeKind
	Row      RowKey
	Day      string
	Old      decimal.Decimal
	New      decimal.Decimal
	Reason   string
	Task     string
	LaborCat string
}

// Diff compares the bills of ts with recs. Records with a different number
// of hours update a bill, records without a bill add one and bills missing
// from recs are deleted. Records naming rows that ts does not have are an
// error.
func Diff(ts *model.Timesheet, recs []Record) ([]Change, error) {
	seen := make(map[RowKey]map[string]bool)
	var out []Change
	for _, r := range recs {
		task := ts.Task(r.Task)
		if task == nil {
			return nil, fmt.Errorf("timesheet %d has no task %d", ts.ID, r.Task)
		}
		bills := task.Bills
		laborCat := ""
		if r.Assignment != 0 {
			a := task.Assignment(r.Assignment)
			if a == nil {
				return nil, fmt.Errorf("task %d has no assignment %d", r.Task, r.Assignment)
			}
			bills, laborCat = a.Bills, a.LaborCat
		}
		if seen[r.Row()] == nil {
			seen[r.Row()] = make(map[string]bool)
		}
		seen[r.Row()][r.Day] = true

		c := Change{Row: r.Row(), Day: r.Day, New: r.Hours, Reason: r.Reason, Task: task.Description, LaborCat: laborCat}
		switch b := model.FindBill(bills, r.Day); {
		case b == nil:
			c.Kind = Added
		case !b.Hours.Equal(r.Hours):
			c.Kind, c.Old = Updated, b.Hours
		default:
			continue
		}
		out = append(out, c)
	}

	deleted := func(row RowKey, task *model.Task, laborCat string, bills []model.Bill) {
		for _, b := range bills {
			if seen[row][b.Day] {
				continue
			}
			out = append(out, Change{Kind: Deleted, Row: row, Day: b.Day, Old: b.Hours, Task: task.Description, LaborCat: laborCat})
		}
	}
	for ti := range ts.Tasks {
		task := &ts.Tasks[ti]
		deleted(RowKey{Task: task.ID}, task, "", task.Bills)
		for _, a := range task.Assignments {
			deleted(RowKey{Task: task.ID, Assignment: a.ID}, task, a.LaborCat, a.Bills)
		}
	}
	return out, nil
}

// Apply replaces the bills of ts with recs, so the document matches what
// the server holds after accepting the payload.
func Apply(ts *model.Timesheet, recs []Record) error {
	changes, err := Diff(ts, recs)
	if err != nil {
		return err
	}
	byRow := make(map[RowKey][]model.Bill)
	for _, r := range recs {
		byRow[r.Row()] = append(byRow[r.Row()], model.Bill{Day: r.Day, Hours: r.Hours})
	}
	if len(changes) == 0 {
		return nil
	}
	for ti := range ts.Tasks {
		task := &ts.Tasks[ti]
		task.Bills = byRow[RowKey{Task: task.ID}]
		for ai := range task.Assignments {
			a := &task.Assignments[ai]
			a.Bills = byRow[RowKey{Task: task.ID, Assignment: a.ID}]
		}
	}
	return nil
}

// String renders the audit log line for c.
func (c Change) String() string {
	what := "task " + c.Task
	if c.LaborCat != "" {
		what += " (LCAT: " + c.LaborCat + ")"
	}
	day := c.Day
	if len(day) == 8 {
		day = day[:4] + "-" + day[4:6] + "-" + day[6:]
	}
	switch c.Kind {
	case Added:
		return fmt.Sprintf("Added %s hours for %s on %s", c.New.StringFixed(2), what, day)
	case Deleted:
		return fmt.Sprintf("Hours for %s on %s changed from %s to 0.00.", what, day, c.Old.StringFixed(2))
	}
	s := fmt.Sprintf("Hours for %s on %s changed from %s to %s.", what, day, c.Old.StringFixed(2), c.New.StringFixed(2))
	if c.Reason != "" {
		s += " The user-specified reason: " + c.Reason
	}
	return s
}
