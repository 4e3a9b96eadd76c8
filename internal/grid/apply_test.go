package grid_test

import (
	"testing"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
)

func TestDiff(t *testing.T) {
	ts := projectSheet()
	recs, err := grid.ParseRecords("7_:20240102:2.00:late entry;9_12:20240103:7.50;9_12:20240104:1.00")
	if err != nil {
		t.Fatal(err)
	}
	changes, err := grid.Diff(ts, recs)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	want := []struct {
		kind grid.ChangeKind
		row  grid.RowKey
		day  string
		log  string
	}{
		{grid.Updated, grid.RowKey{Task: 7}, "20240102", "Hours for task Overhead on 2024-01-02 changed from 1.00 to 2.00. The user-specified reason: late entry"},
		{grid.Added, grid.RowKey{Task: 9, Assignment: 12}, "20240104", "Added 1.00 hours for task Build (LCAT: Engineer) on 2024-01-04"},
		{grid.Deleted, grid.RowKey{Task: 9, Assignment: 12}, "20240111", "Hours for task Build (LCAT: Engineer) on 2024-01-11 changed from 3.00 to 0.00."},
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %d (%v), want %d", len(changes), changes, len(want))
	}
	for i, w := range want {
		c := changes[i]
		if c.Kind != w.kind || c.Row != w.row || c.Day != w.day {
			t.Errorf("change %d = %s %s %s, want %s %s %s", i, c.Kind, c.Row, c.Day, w.kind, w.row, w.day)
		}
		if c.String() != w.log {
			t.Errorf("change %d log = %q, want %q", i, c.String(), w.log)
		}
	}
}

func TestDiffUnknownRow(t *testing.T) {
	ts := projectSheet()
	for _, p := range []string{"3_:20240102:1.00", "9_99:20240102:1.00"} {
		recs, err := grid.ParseRecords(p)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := grid.Diff(ts, recs); err == nil {
			t.Errorf("Diff(%q): expected error", p)
		}
	}
}

func TestApply(t *testing.T) {
	ts := projectSheet()
	recs, err := grid.ParseRecords("9_12:20240104:1.00")
	if err != nil {
		t.Fatal(err)
	}
	if err := grid.Apply(ts, recs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(ts.Tasks[0].Bills) != 0 {
		t.Errorf("task 7 bills = %v, want none", ts.Tasks[0].Bills)
	}
	bills := ts.Tasks[1].Assignments[0].Bills
	if len(bills) != 1 || model.FindBill(bills, "20240104") == nil {
		t.Errorf("assignment bills = %v", bills)
	}
}
