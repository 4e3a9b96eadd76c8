package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/Tiliavir/timegrid/internal/config"
	"github.com/Tiliavir/timegrid/internal/model"
)

// ErrNotFound is returned when no cached timesheet matches.
var ErrNotFound = errors.New("timesheet not in local cache")

// Store mirrors fetched timesheets to disk, one JSON file per timesheet under
// <base>/timesheets/<year>/<id>.json, the year taken from the pay period begin.
type Store struct {
	Base string
}

// Open returns a Store rooted at ~/.timegrid.
func Open() (*Store, error) {
	base, err := config.BaseDir()
	if err != nil {
		return nil, err
	}
	return &Store{Base: base}, nil
}

func (s *Store) dir() string {
	return filepath.Join(s.Base, "timesheets")
}

// timesheetPath returns the path for a timesheet's JSON file.
func (s *Store) timesheetPath(ts *model.Timesheet) string {
	year := "unknown"
	if len(ts.PayPeriod.Begin) >= 4 {
		year = ts.PayPeriod.Begin[:4]
	}
	return filepath.Join(s.dir(), year, strconv.Itoa(ts.ID)+".json")
}

// SaveTimesheet atomically writes ts, replacing an earlier copy.
func (s *Store) SaveTimesheet(ts *model.Timesheet) error {
	path := s.timesheetPath(ts)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// load reads one cached file. Corrupt files are moved aside and reported.
func load(path string) (*model.Timesheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	var ts model.Timesheet
	if err := json.Unmarshal(data, &ts); err != nil {
		// Back up corrupt file and abort.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	return &ts, nil
}

// files lists every cached timesheet file.
func (s *Store) files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir(), "*", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("storage error listing %s: %w", s.dir(), err)
	}
	return matches, nil
}

// LoadTimesheet returns the cached timesheet with the given id.
func (s *Store) LoadTimesheet(id int) (*model.Timesheet, error) {
	name := strconv.Itoa(id) + ".json"
	paths, err := s.files()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if filepath.Base(p) == name {
			return load(p)
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// All returns every cached timesheet ordered by pay period begin.
func (s *Store) All() ([]*model.Timesheet, error) {
	paths, err := s.files()
	if err != nil {
		return nil, err
	}
	var out []*model.Timesheet
	for _, p := range paths {
		ts, err := load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PayPeriod.Begin != out[j].PayPeriod.Begin {
			return out[i].PayPeriod.Begin < out[j].PayPeriod.Begin
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Latest returns the cached timesheet with the most recent pay period.
func (s *Store) Latest() (*model.Timesheet, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[len(all)-1], nil
}

// ForDate returns the cached timesheet whose pay period contains day.
func (s *Store) ForDate(day string) (*model.Timesheet, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].PayPeriod.Contains(day) {
			return all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no pay period contains %s", ErrNotFound, day)
}
