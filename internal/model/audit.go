package model

import "time"

// AuditLog is one line of a timesheet's change history.
type AuditLog struct {
	ID          string    `json:"id"`
	TimesheetID int       `json:"timesheetId"`
	Timestamp   time.Time `json:"timestamp"`
	Log         string    `json:"log"`
}
