package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/render"
	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// Format is an output format of Write.
type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	Markdown Format = "md"
	XLSX     Format = "xlsx"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, Markdown, XLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, json, md or xlsx)", s)
}

// Line is one non-empty cell of the grid.
type Line struct {
	Day        string `json:"day"`
	TaskID     int    `json:"taskId"`
	Assignment int    `json:"assignmentId,omitempty"`
	Task       string `json:"task"`
	LaborCat   string `json:"laborCat,omitempty"`
	Hours      string `json:"hours"`
}

// Lines lists the non-empty cells of idx, day by day.
func Lines(idx *grid.Index) []Line {
	labels := make(map[grid.RowKey]grid.Row, len(idx.Rows))
	for _, r := range idx.Rows {
		labels[r.Key] = r
	}
	var out []Line
	for _, day := range idx.Days {
		for _, c := range idx.DayCells(day) {
			if c.Value == "" {
				continue
			}
			r := labels[c.Key.Row()]
			out = append(out, Line{
				Day:        day,
				TaskID:     c.Key.Task,
				Assignment: c.Key.Assignment,
				Task:       r.Task,
				LaborCat:   r.LaborCat,
				Hours:      c.Value,
			})
		}
	}
	return out
}

// Write renders the grid of ts in the given format.
func Write(w io.Writer, f Format, ts *model.Timesheet, idx *grid.Index) error {
	switch f {
	case JSON:
		return writeJSON(w, ts, idx)
	case Markdown:
		return writeMarkdown(w, ts, idx)
	case XLSX:
		return writeXLSX(w, ts, idx)
	case CSV:
		return writeCSV(w, idx)
	}
	return fmt.Errorf("unknown export format %q", f)
}

type document struct {
	ID         int               `json:"id"`
	User       model.User        `json:"user"`
	PayPeriod  model.PayPeriod   `json:"payPeriod"`
	Status     string            `json:"status"`
	Lines      []Line            `json:"lines"`
	DayTotals  map[string]string `json:"dayTotals"`
	WeekTotals []weekTotal       `json:"weekTotals"`
	Total      string            `json:"total"`
}

type weekTotal struct {
	Week  string `json:"week"`
	End   string `json:"end"`
	Hours string `json:"hours"`
}

func writeJSON(w io.Writer, ts *model.Timesheet, idx *grid.Index) error {
	doc := document{
		ID:         ts.ID,
		User:       ts.User,
		PayPeriod:  ts.PayPeriod,
		Status:     render.Status(ts),
		Lines:      Lines(idx),
		DayTotals:  make(map[string]string, len(idx.Days)),
		WeekTotals: []weekTotal{},
		Total:      idx.GrandTotal(),
	}
	if doc.Lines == nil {
		doc.Lines = []Line{}
	}
	for _, d := range idx.Days {
		doc.DayTotals[d] = idx.DayTotal(d)
		total, ok := idx.WeekTotal(d)
		if !ok {
			continue
		}
		week, err := timecalc.WeekLabel(d)
		if err != nil {
			return err
		}
		doc.WeekTotals = append(doc.WeekTotals, weekTotal{Week: week, End: d, Hours: total})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeCSV(w io.Writer, idx *grid.Index) error {
	var b strings.Builder
	b.WriteString("date,task_id,assignment_id,task,labor_cat,hours\n")
	for _, l := range Lines(idx) {
		fmt.Fprintf(&b, "%s,%d,%d,%s,%s,%s\n",
			l.Day[:4]+"-"+l.Day[4:6]+"-"+l.Day[6:],
			l.TaskID,
			l.Assignment,
			csvEscape(l.Task),
			csvEscape(l.LaborCat),
			l.Hours,
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeMarkdown(w io.Writer, ts *model.Timesheet, idx *grid.Index) error {
	var b strings.Builder
	fmt.Fprintf(&b, "## Timesheet %d: %s, %s - %s (%s)\n\n",
		ts.ID, ts.User.Name(), ts.PayPeriod.Begin, ts.PayPeriod.End, render.Status(ts))

	b.WriteString("| Task |")
	for _, d := range idx.Days {
		b.WriteString(" " + render.DayLabel(d) + " |")
	}
	b.WriteString(" Total |\n|---|")
	for range idx.Days {
		b.WriteString("---:|")
	}
	b.WriteString("---:|\n")

	for _, r := range idx.Rows {
		b.WriteString("| " + mdEscape(r.Label()) + " |")
		for _, c := range idx.RowCells(r.Key) {
			b.WriteString(" " + c.Value + " |")
		}
		b.WriteString(" " + idx.TaskTotal(r.Key) + " |\n")
	}
	b.WriteString("| **Total** |")
	for _, d := range idx.Days {
		b.WriteString(" " + idx.DayTotal(d) + " |")
	}
	b.WriteString(" **" + idx.GrandTotal() + "** |\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
