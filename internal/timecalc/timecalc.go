package timecalc

import (
	"fmt"
	"time"
)

// DayLayout is the compact day format used in cell identifiers and wire records.
const DayLayout = "20060102"

// ParseDay parses a YYYYMMDD string into midnight UTC of that day.
func ParseDay(s string) (time.Time, error) {
	if len(s) != len(DayLayout) {
		return time.Time{}, fmt.Errorf("invalid day %q: want YYYYMMDD", s)
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

// FormatDay formats t as YYYYMMDD in t's own location.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// Days returns every day in [begin, end] inclusive as YYYYMMDD strings.
func Days(begin, end string) ([]string, error) {
	b, err := ParseDay(begin)
	if err != nil {
		return nil, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return nil, err
	}
	if e.Before(b) {
		return nil, fmt.Errorf("pay period ends (%s) before it begins (%s)", end, begin)
	}
	var days []string
	for d := b; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, FormatDay(d))
	}
	return days, nil
}

// AddDays shifts a YYYYMMDD day by n days.
func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return FormatDay(t.AddDate(0, 0, n)), nil
}

// Weekday returns the day of week of a YYYYMMDD day.
func Weekday(day string) (time.Weekday, error) {
	t, err := ParseDay(day)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekSpan finds the Monday to Friday span around days[idx]. It walks backward
// while the weekday is after Monday and forward while it is before Friday,
// never leaving the slice, so a span may be partial at either edge.
// ok is false when days[idx] is a weekend day.
func WeekSpan(days []string, idx int) (begin, end int, ok bool) {
	if idx < 0 || idx >= len(days) {
		return 0, 0, false
	}
	wd, err := Weekday(days[idx])
	if err != nil || wd == time.Saturday || wd == time.Sunday {
		return 0, 0, false
	}

	begin, end = idx, idx
	for wd := wd; wd > time.Monday && begin > 0; {
		begin--
		wd, _ = Weekday(days[begin])
	}
	for wd := wd; wd < time.Friday && end < len(days)-1; {
		end++
		wd, _ = Weekday(days[end])
	}
	return begin, end, true
}

// WeekLabel names the ISO week of a YYYYMMDD day, e.g. "2024-W01".
func WeekLabel(day string) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week), nil
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
