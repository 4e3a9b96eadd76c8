package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// ErrMalformedRecord is returned by ParseRecords for payloads that do not
// follow the wire format.
var ErrMalformedRecord = errors.New("malformed bill record")

const (
	recordSep = ";"
	fieldSep  = ":"
)

// Record is one bill in a wire payload.
type Record struct {
	Task       int
	Assignment int
	Day        string
	Hours      decimal.Decimal
	Reason     string
}

// Row returns the row the record belongs to.
func (r Record) Row() RowKey { return RowKey{Task: r.Task, Assignment: r.Assignment} }

// String renders "task_assignment:day:hours[:reason]".
func (r Record) String() string {
	s := r.Row().String() + fieldSep + r.Day + fieldSep + Format(r.Hours)
	if r.Reason != "" {
		s += fieldSep + SanitizeReason(r.Reason)
	}
	return s
}

// Serialize emits every cell holding a numeric value, days outer and rows in
// display order inner, joined by ';'. Cells without a value are left out.
func Serialize(idx *Index, reasons map[CellKey]string) string {
	var recs []string
	for _, day := range idx.Days {
		for _, c := range idx.DayCells(day) {
			hours, ok := parseValue(c.Value)
			if !ok {
				continue
			}
			r := Record{
				Task:       c.Key.Task,
				Assignment: c.Key.Assignment,
				Day:        c.Key.Day,
				Hours:      hours,
				Reason:     reasons[c.Key],
			}
			recs = append(recs, r.String())
		}
	}
	return strings.Join(recs, recordSep)
}

// ParseRecords parses a payload produced by Serialize. An empty payload holds
// no records. Duplicate (row, day) pairs are rejected.
func ParseRecords(payload string) ([]Record, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	parts := strings.Split(payload, recordSep)
	out := make([]Record, 0, len(parts))
	seen := make(map[CellKey]bool, len(parts))
	for i, p := range parts {
		r, err := parseRecord(p)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d %q: %w", ErrMalformedRecord, i+1, p, err)
		}
		k := CellKey{Task: r.Task, Assignment: r.Assignment, Day: r.Day}
		if seen[k] {
			return nil, fmt.Errorf("%w: record %d %q: duplicate bill", ErrMalformedRecord, i+1, p)
		}
		seen[k] = true
		out = append(out, r)
	}
	return out, nil
}

func parseRecord(s string) (Record, error) {
	fields := strings.SplitN(s, fieldSep, 4)
	if len(fields) < 3 {
		return Record{}, fmt.Errorf("want at least 3 fields, got %d", len(fields))
	}
	task, asg, ok := strings.Cut(fields[0], "_")
	if !ok {
		return Record{}, errors.New("row lacks '_'")
	}
	row, err := parseRow(task, asg)
	if err != nil {
		return Record{}, err
	}
	if _, err := timecalc.ParseDay(fields[1]); err != nil {
		return Record{}, err
	}
	hours, err := decimal.NewFromString(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("hours %q: %w", fields[2], ErrNotNumeric)
	}
	if hours.IsNegative() {
		return Record{}, ErrNegativeHours
	}
	if hours.GreaterThan(maxHours) {
		return Record{}, ErrTooManyHours
	}
	r := Record{Task: row.Task, Assignment: row.Assignment, Day: fields[1], Hours: hours}
	if len(fields) == 4 {
		r.Reason = strings.TrimSpace(fields[3])
	}
	return r, nil
}
