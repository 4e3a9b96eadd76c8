package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// Cell markers.
const (
	DirtyMark   = "*"
	ExpiredMark = "x"
)

// Marks reports per-cell edit state. *grid.Tracker implements it.
type Marks interface {
	IsCellDirty(key grid.CellKey) bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	labelStyle   = lipgloss.NewStyle().Padding(0, 1)
	offStyle     = cellStyle.Faint(true)
	todayStyle   = cellStyle.Underline(true)
	dirtyStyle   = cellStyle.Foreground(lipgloss.Color("3"))
	expiredStyle = cellStyle.Faint(true).Strikethrough(true)
	totalStyle   = cellStyle.Bold(true)
	legendStyle  = lipgloss.NewStyle().Faint(true)
)

// Status names the state of ts for the title line.
func Status(ts *model.Timesheet) string {
	switch {
	case ts.Verified:
		return "verified"
	case ts.Approved:
		return "approved"
	case ts.Completed:
		return "completed"
	}
	return "open"
}

// DayLabel renders a day column header such as "Mo 01".
func DayLabel(day string) string {
	t, err := timecalc.ParseDay(day)
	if err != nil {
		return day
	}
	return fmt.Sprintf("%s %02d", t.Weekday().String()[:2], t.Day())
}

// Timesheet renders ts as a grid with row, day, week and grand totals.
// marks may be nil.
func Timesheet(ts *model.Timesheet, idx *grid.Index, marks Marks) string {
	headers := make([]string, 0, len(idx.Days)+2)
	headers = append(headers, "Task")
	for _, d := range idx.Days {
		headers = append(headers, DayLabel(d))
	}
	headers = append(headers, "Total")

	rows := make([][]string, 0, len(idx.Rows)+2)
	cells := make([][]*grid.Cell, 0, len(idx.Rows))
	for _, r := range idx.Rows {
		rc := idx.RowCells(r.Key)
		line := make([]string, 0, len(headers))
		line = append(line, r.Label())
		for _, c := range rc {
			line = append(line, cellText(c, marks))
		}
		line = append(line, idx.TaskTotal(r.Key))
		rows = append(rows, line)
		cells = append(cells, rc)
	}

	dayTotals := []string{"Day total"}
	weekTotals := []string{"Week total"}
	for _, d := range idx.Days {
		dayTotals = append(dayTotals, idx.DayTotal(d))
		w, _ := idx.WeekTotal(d)
		weekTotals = append(weekTotals, w)
	}
	dayTotals = append(dayTotals, idx.GrandTotal())
	weekTotals = append(weekTotals, "")
	rows = append(rows, dayTotals, weekTotals)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return labelStyle
			}
			if row >= len(cells) || col > len(idx.Days) {
				return totalStyle
			}
			return styleFor(cells[row][col-1], marks)
		})

	title := titleStyle.Render(fmt.Sprintf("Timesheet %d  %s  %s - %s  [%s]",
		ts.ID, ts.User.Name(), ts.PayPeriod.Begin, ts.PayPeriod.End, Status(ts)))
	legend := legendStyle.Render(DirtyMark + " unsaved   " + ExpiredMark + " outside assignment")
	return strings.Join([]string{title, t.Render(), legend}, "\n") + "\n"
}

func cellText(c *grid.Cell, marks Marks) string {
	v := c.Value
	if v == "" && c.Expired {
		v = ExpiredMark
	}
	if marks != nil && marks.IsCellDirty(c.Key) {
		v += DirtyMark
	}
	return v
}

func styleFor(c *grid.Cell, marks Marks) lipgloss.Style {
	switch {
	case marks != nil && marks.IsCellDirty(c.Key):
		return dirtyStyle
	case c.Expired:
		return expiredStyle
	case c.Today:
		return todayStyle
	case c.Weekend || c.Holiday:
		return offStyle
	}
	return cellStyle
}
