package grid

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/timegrid/internal/timecalc"
)

var (
	// ErrNotEditable is returned when an edit targets a static cell.
	ErrNotEditable = errors.New("cell is not editable")
	// ErrNotFocused is returned when CommitEdit names a cell other than the
	// one passed to BeginEdit.
	ErrNotFocused = errors.New("cell is not being edited")
	// ErrReasonRequired is returned for a blank change reason.
	ErrReasonRequired = errors.New("you must enter a reason for the change")
	// ErrReasonPending blocks edits and navigation until a reason is supplied.
	ErrReasonPending = errors.New("a reason for a previous change is still required")
	// ErrNoPendingReason is returned by SupplyReason when nothing waits for one.
	ErrNoPendingReason = errors.New("no change is waiting for a reason")
)

// ValidationError reports rejected cell input. The cell keeps its previous
// value and nothing else changes.
type ValidationError struct {
	Key   CellKey
	Input string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Input, e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CommitOutcome describes the effect of a committed edit.
type CommitOutcome struct {
	Key      CellKey
	Value    string
	Previous string
	// Changed is true when Value differs from the value seen at BeginEdit.
	Changed bool
	// ReasonRequired is set when a back-dated, previously filled cell was
	// changed. SupplyReason must be called before any further edit.
	ReasonRequired bool
	Totals         Totals
}

// Tracker records edits against one Index: the timesheet dirty flag, dirty
// cells, change reasons and the value a cell had when editing began.
type Tracker struct {
	idx *Index
	now func() time.Time

	dirty      bool
	dirtyCells map[CellKey]bool
	reasons    map[CellKey]string

	focused  *CellKey
	previous string
	pending  *CellKey
}

// NewTracker starts tracking idx. now decides which day is today; nil means
// time.Now.
func NewTracker(idx *Index, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		idx:        idx,
		now:        now,
		dirtyCells: make(map[CellKey]bool),
		reasons:    make(map[CellKey]string),
	}
}

// Index returns the tracked index.
func (t *Tracker) Index() *Index { return t.idx }

// BeginEdit focuses key and returns its current value, which later commits
// compare against.
func (t *Tracker) BeginEdit(key CellKey) (string, error) {
	if t.pending != nil {
		return "", ErrReasonPending
	}
	c, err := t.idx.Cell(key)
	if err != nil {
		return "", err
	}
	if !c.Input {
		return "", fmt.Errorf("%w: %s", ErrNotEditable, key)
	}
	t.focused = &key
	t.previous = c.Value
	return c.Value, nil
}

// CancelEdit drops the focus without touching the cell.
func (t *Tracker) CancelEdit() {
	t.focused = nil
	t.previous = ""
}

// CommitEdit validates input for the focused cell, stores its normalized form
// and refreshes totals.
func (t *Tracker) CommitEdit(key CellKey, input string) (CommitOutcome, error) {
	if t.pending != nil {
		return CommitOutcome{}, ErrReasonPending
	}
	if t.focused == nil || *t.focused != key {
		return CommitOutcome{}, fmt.Errorf("%w: %s", ErrNotFocused, key)
	}
	c, err := t.idx.Cell(key)
	if err != nil {
		return CommitOutcome{}, err
	}

	value, err := Normalize(input)
	if err != nil {
		return CommitOutcome{}, &ValidationError{Key: key, Input: input, Err: err}
	}

	previous := t.previous
	t.focused = nil
	t.previous = ""

	c.Value = value
	out := CommitOutcome{
		Key:      key,
		Value:    value,
		Previous: previous,
		Changed:  value != previous,
		Totals:   t.idx.recalc(key),
	}
	if !out.Changed || t.dirtyCells[key] {
		return out, nil
	}

	t.dirtyCells[key] = true
	t.dirty = true
	if previous != "" && key.Day != timecalc.FormatDay(t.now()) {
		out.ReasonRequired = true
		t.pending = &key
	}
	return out, nil
}

// SupplyReason records the reason for the pending change.
func (t *Tracker) SupplyReason(reason string) error {
	if t.pending == nil {
		return ErrNoPendingReason
	}
	clean := SanitizeReason(reason)
	if clean == "" {
		return ErrReasonRequired
	}
	t.reasons[*t.pending] = clean
	t.pending = nil
	return nil
}

// PendingReason returns the cell waiting for a reason, if any.
func (t *Tracker) PendingReason() (CellKey, bool) {
	if t.pending == nil {
		return CellKey{}, false
	}
	return *t.pending, true
}

// Reason returns the recorded reason for key.
func (t *Tracker) Reason(key CellKey) (string, bool) {
	r, ok := t.reasons[key]
	return r, ok
}

// Reasons returns a copy of every recorded reason.
func (t *Tracker) Reasons() map[CellKey]string {
	out := make(map[CellKey]string, len(t.reasons))
	for k, v := range t.reasons {
		out[k] = v
	}
	return out
}

// Dirty reports whether the timesheet has unsaved changes.
func (t *Tracker) Dirty() bool { return t.dirty }

// IsCellDirty reports whether key was changed since the last save.
func (t *Tracker) IsCellDirty(key CellKey) bool { return t.dirtyCells[key] }

// MarkSaved clears dirty marks and reasons after the server accepted the grid.
func (t *Tracker) MarkSaved() {
	t.dirty = false
	t.dirtyCells = make(map[CellKey]bool)
	t.reasons = make(map[CellKey]string)
}

// Serialize renders the grid and its reasons as a wire payload.
func (t *Tracker) Serialize() string {
	return Serialize(t.idx, t.reasons)
}

// SanitizeReason trims s and replaces the wire separators ':' and ';' with
// spaces.
func SanitizeReason(s string) string {
	s = strings.NewReplacer(":", " ", ";", " ").Replace(s)
	return strings.TrimSpace(s)
}
