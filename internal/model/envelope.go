package model

// Envelope is the JSON body of every timesheet API response.
type Envelope struct {
	Success   bool       `json:"success"`
	Msg       string     `json:"msg,omitempty"`
	Timesheet *Timesheet `json:"timesheet,omitempty"`
	User      *User      `json:"user,omitempty"`
	Logs      []AuditLog `json:"logs,omitempty"`
}
