package grid

import "github.com/Tiliavir/timegrid/internal/timecalc"

// Totals holds the rendered totals touched by one edit.
type Totals struct {
	Task string
	Day  string
	// Week and WeekEnd are empty when the edited day is a weekend day.
	Week    string
	WeekEnd string
	Grand   string
}

// TaskTotal returns the rendered total of one row.
func (idx *Index) TaskTotal(row RowKey) string { return idx.taskTotals[row] }

// DayTotal returns the rendered total of one day.
func (idx *Index) DayTotal(day string) string { return idx.dayTotals[day] }

// WeekTotal returns the rendered total of the working week ending on day.
// ok is false when no week span ends on day.
func (idx *Index) WeekTotal(day string) (string, bool) {
	v, ok := idx.weekTotals[day]
	return v, ok
}

// GrandTotal returns the rendered total of the whole timesheet.
func (idx *Index) GrandTotal() string { return idx.grand }

// recalc refreshes the totals affected by key. Week totals read day totals and
// the grand total reads task totals, so the order matters.
func (idx *Index) recalc(key CellKey) Totals {
	var t Totals
	t.Task = idx.recalcTask(key.Row())
	t.Day = idx.recalcDay(key.Day)
	t.WeekEnd, t.Week = idx.recalcWeek(key.Day)
	t.Grand = idx.recalcGrand()
	return t
}

func (idx *Index) recalcAll() {
	for _, r := range idx.Rows {
		idx.recalcTask(r.Key)
	}
	for _, d := range idx.Days {
		idx.recalcDay(d)
	}
	for _, d := range idx.Days {
		idx.recalcWeek(d)
	}
	idx.recalcGrand()
}

func (idx *Index) recalcTask(row RowKey) string {
	var values []string
	for _, c := range idx.RowCells(row) {
		if !c.Expired {
			values = append(values, c.Value)
		}
	}
	v := sum(values)
	idx.taskTotals[row] = v
	return v
}

func (idx *Index) recalcDay(day string) string {
	var values []string
	for _, c := range idx.DayCells(day) {
		if !c.Expired {
			values = append(values, c.Value)
		}
	}
	v := sum(values)
	idx.dayTotals[day] = v
	return v
}

// recalcWeek sums the day totals of the Monday to Friday span around day and
// stores the result under the span's last day. Weekends are skipped.
func (idx *Index) recalcWeek(day string) (end, total string) {
	i, ok := idx.dayIndex[day]
	if !ok {
		return "", ""
	}
	b, e, ok := timecalc.WeekSpan(idx.Days, i)
	if !ok {
		return "", ""
	}
	values := make([]string, 0, e-b+1)
	for _, d := range idx.Days[b : e+1] {
		values = append(values, idx.dayTotals[d])
	}
	end = idx.Days[e]
	total = sum(values)
	idx.weekTotals[end] = total
	return end, total
}

func (idx *Index) recalcGrand() string {
	values := make([]string, 0, len(idx.Rows))
	for _, r := range idx.Rows {
		values = append(values, idx.taskTotals[r.Key])
	}
	idx.grand = sum(values)
	return idx.grand
}
