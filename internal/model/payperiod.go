package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// PayPeriodType controls how a pay period rolls over to the next one.
type PayPeriodType string

const (
	Weekly      PayPeriodType = "WEEKLY"
	BiWeekly    PayPeriodType = "BI_WEEKLY"
	SemiMonthly PayPeriodType = "SEMI_MONTHLY"
	Monthly     PayPeriodType = "MONTHLY"
)

// ParsePayPeriodType parses a type name case-insensitively.
func ParsePayPeriodType(s string) (PayPeriodType, error) {
	switch t := PayPeriodType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Weekly, BiWeekly, SemiMonthly, Monthly:
		return t, nil
	}
	return "", fmt.Errorf("unknown pay period type %q", s)
}

// PayPeriod is an inclusive range of days covered by one timesheet.
type PayPeriod struct {
	Type  PayPeriodType `json:"type"`
	Begin string        `json:"begin"`
	End   string        `json:"end"`
}

// Contains reports whether day (YYYYMMDD) lies within the pay period.
func (p PayPeriod) Contains(day string) bool {
	return p.Begin <= day && day <= p.End
}

// Days lists every day of the pay period.
func (p PayPeriod) Days() ([]string, error) {
	return timecalc.Days(p.Begin, p.End)
}

// Next returns the pay period immediately following p.
func (p PayPeriod) Next() (PayPeriod, error) {
	b, e, err := p.bounds()
	if err != nil {
		return PayPeriod{}, err
	}

	switch p.Type {
	case Weekly:
		b, e = b.AddDate(0, 0, 7), e.AddDate(0, 0, 7)
	case BiWeekly:
		b, e = b.AddDate(0, 0, 14), e.AddDate(0, 0, 14)
	case Monthly:
		nb := e.AddDate(0, 0, 1)
		if nb.Day() == 1 {
			e = lastOfMonth(nb)
		} else {
			e = addMonths(e, 1)
		}
		b = nb
	case SemiMonthly:
		nb := e.AddDate(0, 0, 1)
		// A period that began on the 1st is followed by the remainder of the month.
		if b.Day() == 1 {
			e = lastOfMonth(nb)
		} else {
			e = addMonths(b.AddDate(0, 0, -1), 1)
		}
		b = nb
	default:
		return PayPeriod{}, fmt.Errorf("unknown pay period type %q", p.Type)
	}
	return p.with(b, e), nil
}

// Previous returns the pay period immediately preceding p.
func (p PayPeriod) Previous() (PayPeriod, error) {
	b, e, err := p.bounds()
	if err != nil {
		return PayPeriod{}, err
	}

	switch p.Type {
	case Weekly:
		b, e = b.AddDate(0, 0, -7), e.AddDate(0, 0, -7)
	case BiWeekly:
		b, e = b.AddDate(0, 0, -14), e.AddDate(0, 0, -14)
	case Monthly:
		b, e = addMonths(b, -1), b.AddDate(0, 0, -1)
	case SemiMonthly:
		b, e = addMonths(e.AddDate(0, 0, 1), -1), b.AddDate(0, 0, -1)
	default:
		return PayPeriod{}, fmt.Errorf("unknown pay period type %q", p.Type)
	}
	return p.with(b, e), nil
}

// maxPeriodSteps bounds Containing so a corrupt anchor cannot loop forever.
const maxPeriodSteps = 2000

// Containing walks forward or backward from p until it reaches the pay
// period that contains day.
func (p PayPeriod) Containing(day string) (PayPeriod, error) {
	if _, err := timecalc.ParseDay(day); err != nil {
		return PayPeriod{}, err
	}
	cur := p
	for i := 0; i < maxPeriodSteps; i++ {
		if cur.Contains(day) {
			return cur, nil
		}
		var err error
		if day < cur.Begin {
			cur, err = cur.Previous()
		} else {
			cur, err = cur.Next()
		}
		if err != nil {
			return PayPeriod{}, err
		}
	}
	return PayPeriod{}, fmt.Errorf("no pay period within reach contains %s", day)
}

func (p PayPeriod) bounds() (time.Time, time.Time, error) {
	b, err := timecalc.ParseDay(p.Begin)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("pay period begin: %w", err)
	}
	e, err := timecalc.ParseDay(p.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("pay period end: %w", err)
	}
	return b, e, nil
}

func (p PayPeriod) with(b, e time.Time) PayPeriod {
	return PayPeriod{Type: p.Type, Begin: timecalc.FormatDay(b), End: timecalc.FormatDay(e)}
}

func lastOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
}

// addMonths shifts t by n months, clamping to the last day of the target month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := lastOfMonth(first)
	if t.Day() > last.Day() {
		return last
	}
	return time.Date(first.Year(), first.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
