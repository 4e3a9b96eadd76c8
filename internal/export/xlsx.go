package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/render"
)

// SheetName is the worksheet written by the xlsx format.
const SheetName = "Timesheet"

func writeXLSX(w io.Writer, ts *model.Timesheet, idx *grid.Index) error {
	f, err := Workbook(ts, idx)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Workbook lays the grid out on one sheet: a header row, one row per grid
// row with hours as numbers, then a totals row.
func Workbook(ts *model.Timesheet, idx *grid.Index) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"Task"}
	for _, d := range idx.Days {
		header = append(header, render.DayLabel(d))
	}
	header = append(header, "Total")

	rows := [][]interface{}{header}
	for _, r := range idx.Rows {
		row := []interface{}{r.Label()}
		for _, c := range idx.RowCells(r.Key) {
			row = append(row, number(c.Value))
		}
		rows = append(rows, append(row, number(idx.TaskTotal(r.Key))))
	}
	totals := []interface{}{"Total"}
	for _, d := range idx.Days {
		totals = append(totals, number(idx.DayTotal(d)))
	}
	rows = append(rows, append(totals, number(idx.GrandTotal())))

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetName, cell, &rows[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		f.SetRowStyle(SheetName, 1, 1, bold)
		f.SetRowStyle(SheetName, len(rows), len(rows), bold)
	}
	f.SetColWidth(SheetName, "A", "A", 30)

	title := fmt.Sprintf("%s %s-%s", ts.User.Name(), ts.PayPeriod.Begin, ts.PayPeriod.End)
	if err := f.SetDocProps(&excelize.DocProperties{Title: title, Creator: "timegrid"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}
	return f, nil
}

// number turns a rendered hours value into a float cell; empty stays empty.
func number(v string) interface{} {
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return v
	}
	f, _ := d.Float64()
	return f
}
