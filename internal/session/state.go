package session

import "fmt"

// State is the submission lifecycle state of the displayed timesheet.
type State int

const (
	// ReadOnly timesheets belong to someone else or nothing is loaded.
	ReadOnly State = iota
	Editable
	// Completing waits for the user to confirm completion.
	Completing
	Completed
	// Fixing waits for the user to confirm reopening.
	Fixing
)

func (s State) String() string {
	switch s {
	case ReadOnly:
		return "read-only"
	case Editable:
		return "editable"
	case Completing:
		return "completing"
	case Completed:
		return "completed"
	case Fixing:
		return "fixing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
