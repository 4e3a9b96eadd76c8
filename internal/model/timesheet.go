package model

import "github.com/shopspring/decimal"

// Timesheet is the full document for one user and one pay period.
type Timesheet struct {
	ID        int       `json:"id"`
	User      User      `json:"user"`
	PayPeriod PayPeriod `json:"payPeriod"`
	Completed bool      `json:"completed"`
	Approved  bool      `json:"approved"`
	Verified  bool      `json:"verified"`
	Tasks     []Task    `json:"tasks"`
	Holidays  []Holiday `json:"holidays"`
}

// User identifies the owner of a timesheet or the person viewing it.
type User struct {
	ID        int    `json:"id"`
	Login     string `json:"login"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Task is a unit of work. Administrative tasks are non-billable and editable
// on any day of an open timesheet.
type Task struct {
	ID             int          `json:"id"`
	Description    string       `json:"description"`
	Administrative bool         `json:"administrative"`
	Assignments    []Assignment `json:"assignments"`
	// Bills holds task-level hours; only used when there are no assignments.
	Bills []Bill `json:"bills"`
}

// Assignment binds the user to a task under a labor category for a bounded
// validity window (inclusive YYYYMMDD days).
type Assignment struct {
	ID       int    `json:"id"`
	LaborCat string `json:"laborCat"`
	Begin    string `json:"begin"`
	End      string `json:"end"`
	Bills    []Bill `json:"bills"`
}

// Bill is the recorded hours for one task or assignment on one day.
type Bill struct {
	Day   string          `json:"day"`
	Hours decimal.Decimal `json:"hours"`
}

// Holiday marks a company holiday inside the pay period.
type Holiday struct {
	Day         string `json:"day"`
	Description string `json:"description"`
}

// Name returns "First Last".
func (u User) Name() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Task returns the task with the given id, or nil.
func (t *Timesheet) Task(id int) *Task {
	for i := range t.Tasks {
		if t.Tasks[i].ID == id {
			return &t.Tasks[i]
		}
	}
	return nil
}

// IsHoliday reports whether day is one of the timesheet's holidays.
func (t *Timesheet) IsHoliday(day string) bool {
	for _, h := range t.Holidays {
		if h.Day == day {
			return true
		}
	}
	return false
}

// Assignment returns the assignment with the given id, or nil.
func (t *Task) Assignment(id int) *Assignment {
	for i := range t.Assignments {
		if t.Assignments[i].ID == id {
			return &t.Assignments[i]
		}
	}
	return nil
}

// Covers reports whether day falls inside the assignment's validity window.
// YYYYMMDD strings order the same way as the days they name.
func (a *Assignment) Covers(day string) bool {
	return a.Begin <= day && day <= a.End
}

// FindBill returns the bill recorded for day, or nil.
func FindBill(bills []Bill, day string) *Bill {
	for i := range bills {
		if bills[i].Day == day {
			return &bills[i]
		}
	}
	return nil
}
