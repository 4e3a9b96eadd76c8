package grid_test

import (
	"errors"
	"testing"

	"github.com/Tiliavir/timegrid/internal/grid"
)

func TestCellKeyString(t *testing.T) {
	tests := []struct {
		key  grid.CellKey
		want string
	}{
		{grid.CellKey{Timesheet: 42, Task: 7, Day: "20240101"}, "cell42_7__20240101"},
		{grid.CellKey{Timesheet: 42, Task: 9, Assignment: 12, Day: "20240103"}, "cell42_9_12_20240103"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		back, err := grid.ParseCellKey(tt.want)
		if err != nil {
			t.Fatalf("ParseCellKey(%q): %v", tt.want, err)
		}
		if back != tt.key {
			t.Errorf("ParseCellKey(%q) = %+v, want %+v", tt.want, back, tt.key)
		}
	}
}

func TestParseCellKeyMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"42_7__20240101",
		"cell42_7_20240101",
		"cell42_7___20240101",
		"cell_7__20240101",
		"cell42___20240101",
		"cell42_x__20240101",
		"cell42_7_-3_20240101",
		"cell42_07__20240101",
		"cell42_7__2024-01-01",
		"cell42_7__20240230",
	} {
		if _, err := grid.ParseCellKey(s); !errors.Is(err, grid.ErrMalformedKey) {
			t.Errorf("ParseCellKey(%q) err = %v, want ErrMalformedKey", s, err)
		}
	}
}

func TestRowKeyString(t *testing.T) {
	if got := (grid.RowKey{Task: 7}).String(); got != "7_" {
		t.Errorf("task row = %q", got)
	}
	if got := (grid.RowKey{Task: 7, Assignment: 3}).String(); got != "7_3" {
		t.Errorf("assignment row = %q", got)
	}
}
