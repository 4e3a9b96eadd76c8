package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/storage"
)

func sheet(id int, begin, end string) *model.Timesheet {
	return &model.Timesheet{
		ID:        id,
		User:      model.User{ID: 5, Login: "jdoe"},
		PayPeriod: model.PayPeriod{Type: model.BiWeekly, Begin: begin, End: end},
		Tasks: []model.Task{{
			ID: 7, Description: "Overhead", Administrative: true,
			Bills: []model.Bill{{Day: begin, Hours: decimal.RequireFromString("7.5")}},
		}},
	}
}

func TestLoadTimesheetNotExist(t *testing.T) {
	s := &storage.Store{Base: t.TempDir()}
	if _, err := s.LoadTimesheet(42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("LoadTimesheet on empty cache: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Latest(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Latest on empty cache: err = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadTimesheet(t *testing.T) {
	s := &storage.Store{Base: t.TempDir()}
	ts := sheet(42, "20240101", "20240114")

	if err := s.SaveTimesheet(ts); err != nil {
		t.Fatalf("SaveTimesheet: %v", err)
	}
	loaded, err := s.LoadTimesheet(42)
	if err != nil {
		t.Fatalf("LoadTimesheet after save: %v", err)
	}
	if loaded.PayPeriod != ts.PayPeriod || len(loaded.Tasks) != 1 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if got := loaded.Tasks[0].Bills[0].Hours; !got.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("hours = %s, want 7.5", got)
	}

	// Saving again replaces the file.
	ts.Completed = true
	if err := s.SaveTimesheet(ts); err != nil {
		t.Fatal(err)
	}
	loaded, err = s.LoadTimesheet(42)
	if err != nil || !loaded.Completed {
		t.Errorf("reloaded = %+v, %v", loaded, err)
	}
	if _, err := os.Stat(filepath.Join(s.Base, "timesheets", "2024", "42.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestLatestAndForDate(t *testing.T) {
	s := &storage.Store{Base: t.TempDir()}
	for _, ts := range []*model.Timesheet{
		sheet(43, "20240115", "20240128"),
		sheet(41, "20231218", "20231231"),
		sheet(42, "20240101", "20240114"),
	} {
		if err := s.SaveTimesheet(ts); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.Latest()
	if err != nil || latest.ID != 43 {
		t.Errorf("Latest = %+v, %v; want 43", latest, err)
	}
	got, err := s.ForDate("20240105")
	if err != nil || got.ID != 42 {
		t.Errorf("ForDate = %+v, %v; want 42", got, err)
	}
	if _, err := s.ForDate("20250101"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ForDate outside cache: err = %v", err)
	}
	all, err := s.All()
	if err != nil || len(all) != 3 || all[0].ID != 41 {
		t.Errorf("All = %v, %v", all, err)
	}
}

func TestLoadCorruptTimesheet(t *testing.T) {
	// A corrupt JSON file is backed up and returns an error.
	s := &storage.Store{Base: t.TempDir()}
	dir := filepath.Join(s.Base, "timesheets", "2024")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "42.json")
	if err := os.WriteFile(path, []byte("{bad json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadTimesheet(42); err == nil {
		t.Fatal("expected error for corrupt JSON, got nil")
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("backup file not created: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt file still in place")
	}
}
