package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
)

// stampLayout keeps audit timestamps fixed-width so they sort as text.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EnsureTimesheet returns the id of userID's timesheet for pp, creating it
// when missing.
func (s *Store) EnsureTimesheet(userID int, pp model.PayPeriod) (int, error) {
	return ensureTimesheet(s.db, userID, pp)
}

func ensureTimesheet(q querier, userID int, pp model.PayPeriod) (int, error) {
	if err := addPayPeriod(q, pp); err != nil {
		return 0, err
	}
	if _, err := q.Exec(`
		INSERT OR IGNORE INTO timesheets (user_id, begin_day) VALUES (?, ?)
	`, userID, pp.Begin); err != nil {
		return 0, fmt.Errorf("failed to create timesheet: %w", err)
	}
	return timesheetID(q, userID, pp.Begin)
}

// TimesheetID returns the id of userID's timesheet starting on begin.
func (s *Store) TimesheetID(userID int, begin string) (int, error) {
	return timesheetID(s.db, userID, begin)
}

func timesheetID(q querier, userID int, begin string) (int, error) {
	var id int
	err := q.QueryRow(`
		SELECT id FROM timesheets WHERE user_id = ? AND begin_day = ?
	`, userID, begin).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find timesheet: %w", err)
	}
	return id, nil
}

// LatestTimesheetID returns the id of userID's most recent timesheet.
func (s *Store) LatestTimesheetID(userID int) (int, error) {
	var id int
	err := s.db.QueryRow(`
		SELECT id FROM timesheets WHERE user_id = ? ORDER BY begin_day DESC LIMIT 1
	`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find latest timesheet: %w", err)
	}
	return id, nil
}

// Timesheet loads the full document: pay period, owner, holidays, and every
// task the owner can bill in the period with its assignments and bills.
func (s *Store) Timesheet(id int) (*model.Timesheet, error) {
	ts := &model.Timesheet{ID: id}
	var userID, completed, approved, verified int
	var begin string
	err := s.db.QueryRow(`
		SELECT user_id, begin_day, completed, approved, verified FROM timesheets WHERE id = ?
	`, id).Scan(&userID, &begin, &completed, &approved, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read timesheet %d: %w", id, err)
	}
	ts.Completed, ts.Approved, ts.Verified = completed != 0, approved != 0, verified != 0

	if ts.User, err = s.User(userID); err != nil {
		return nil, fmt.Errorf("timesheet %d owner: %w", id, err)
	}
	if ts.PayPeriod, err = s.PayPeriod(begin); err != nil {
		return nil, fmt.Errorf("timesheet %d pay period: %w", id, err)
	}
	if ts.Holidays, err = s.holidays(ts.PayPeriod); err != nil {
		return nil, err
	}
	if ts.Tasks, err = s.tasks(userID, ts.PayPeriod); err != nil {
		return nil, err
	}
	return ts, nil
}

type billRow struct {
	task, assignment int
	bill             model.Bill
}

func (s *Store) bills(userID int, pp model.PayPeriod) ([]billRow, error) {
	rows, err := s.db.Query(`
		SELECT task_id, assignment_id, day, hours FROM bills
		WHERE user_id = ? AND day BETWEEN ? AND ?
		ORDER BY day
	`, userID, pp.Begin, pp.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var out []billRow
	for rows.Next() {
		var b billRow
		if err := rows.Scan(&b.task, &b.assignment, &b.bill.Day, &b.bill.Hours); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// tasks collects administrative tasks, tasks with an assignment overlapping
// pp and tasks the user billed during pp.
func (s *Store) tasks(userID int, pp model.PayPeriod) ([]model.Task, error) {
	bills, err := s.bills(userID, pp)
	if err != nil {
		return nil, err
	}
	billedAsg := make(map[int]bool)
	for _, b := range bills {
		if b.assignment != 0 {
			billedAsg[b.assignment] = true
		}
	}

	rows, err := s.db.Query(`
		SELECT id, description, administrative FROM tasks
		WHERE administrative = 1
		   OR id IN (SELECT task_id FROM assignments
		             WHERE user_id = ? AND begin_day <= ? AND end_day >= ?)
		   OR id IN (SELECT task_id FROM bills
		             WHERE user_id = ? AND day BETWEEN ? AND ?)
		ORDER BY administrative DESC, id
	`, userID, pp.End, pp.Begin, userID, pp.Begin, pp.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var admin int
		if err := rows.Scan(&t.ID, &t.Description, &admin); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Administrative = admin != 0
		tasks = append(tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byTask := make(map[int]*model.Task, len(tasks))
	for i := range tasks {
		byTask[tasks[i].ID] = &tasks[i]
	}

	arows, err := s.db.Query(`
		SELECT id, task_id, labor_cat, begin_day, end_day FROM assignments
		WHERE user_id = ? ORDER BY task_id, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a model.Assignment
		var taskID int
		if err := arows.Scan(&a.ID, &taskID, &a.LaborCat, &a.Begin, &a.End); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		t := byTask[taskID]
		if t == nil {
			continue
		}
		overlaps := a.Begin <= pp.End && a.End >= pp.Begin
		if overlaps || billedAsg[a.ID] {
			t.Assignments = append(t.Assignments, a)
		}
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}

	for _, b := range bills {
		t := byTask[b.task]
		if t == nil {
			continue
		}
		if b.assignment == 0 {
			t.Bills = append(t.Bills, b.bill)
			continue
		}
		if a := t.Assignment(b.assignment); a != nil {
			a.Bills = append(a.Bills, b.bill)
		}
	}
	return tasks, nil
}

// ApplyChanges writes the bill changes of one save and logs each of them
// against the timesheet.
func (s *Store) ApplyChanges(tsID, userID int, changes []grid.Change) error {
	return s.inTx(func(tx *sql.Tx) error {
		return s.applyChanges(tx, tsID, userID, changes)
	})
}

func (s *Store) applyChanges(tx *sql.Tx, tsID, userID int, changes []grid.Change) error {
	for _, c := range changes {
		if err := applyChange(tx, userID, c); err != nil {
			return err
		}
		if err := s.audit(tx, tsID, c.String()); err != nil {
			return err
		}
	}
	return nil
}

// CompleteTimesheet applies changes, marks the timesheet completed and makes
// sure the user has a timesheet for the following pay period, in a single
// transaction. It returns the id of that next timesheet. When the timesheet
// is already completed nothing is written and ErrCompleted is returned.
func (s *Store) CompleteTimesheet(tsID, userID int, pp model.PayPeriod, changes []grid.Change) (int, error) {
	var nextID int
	err := s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE timesheets SET completed = 1 WHERE id = ? AND completed = 0`, tsID)
		if err != nil {
			return fmt.Errorf("failed to complete timesheet %d: %w", tsID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var completed bool
			err := tx.QueryRow(`SELECT completed FROM timesheets WHERE id = ?`, tsID).Scan(&completed)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return ErrNotFound
			case err != nil:
				return fmt.Errorf("failed to read timesheet %d: %w", tsID, err)
			}
			return ErrCompleted
		}
		if err := s.applyChanges(tx, tsID, userID, changes); err != nil {
			return err
		}
		if err := s.audit(tx, tsID, "Timesheet completed"); err != nil {
			return err
		}
		next, err := nextPayPeriod(tx, pp)
		if err != nil {
			return err
		}
		nextID, err = ensureTimesheet(tx, userID, next)
		return err
	})
	if err != nil {
		return 0, err
	}
	return nextID, nil
}

func applyChange(tx *sql.Tx, userID int, c grid.Change) error {
	var err error
	switch c.Kind {
	case grid.Added:
		_, err = tx.Exec(`
			INSERT INTO bills (user_id, task_id, assignment_id, day, hours, reason)
			VALUES (?, ?, ?, ?, ?, ?)
		`, userID, c.Row.Task, c.Row.Assignment, c.Day, c.New, c.Reason)
	case grid.Updated:
		_, err = tx.Exec(`
			UPDATE bills SET hours = ?, reason = ?
			WHERE user_id = ? AND task_id = ? AND assignment_id = ? AND day = ?
		`, c.New, c.Reason, userID, c.Row.Task, c.Row.Assignment, c.Day)
	case grid.Deleted:
		_, err = tx.Exec(`
			DELETE FROM bills
			WHERE user_id = ? AND task_id = ? AND assignment_id = ? AND day = ?
		`, userID, c.Row.Task, c.Row.Assignment, c.Day)
	default:
		return fmt.Errorf("unknown change kind %v", c.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to %s bill %s on %s: %w", verb(c.Kind), c.Row, c.Day, err)
	}
	return nil
}

func verb(k grid.ChangeKind) string {
	switch k {
	case grid.Added:
		return "add"
	case grid.Updated:
		return "update"
	}
	return "delete"
}

// SetCompleted flips the completed flag and logs msg.
func (s *Store) SetCompleted(tsID int, completed bool, msg string) error {
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE timesheets SET completed = ? WHERE id = ?`, boolInt(completed), tsID)
		if err != nil {
			return fmt.Errorf("failed to update timesheet %d: %w", tsID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.audit(tx, tsID, msg)
	})
}

func (s *Store) audit(tx *sql.Tx, tsID int, msg string) error {
	if _, err := tx.Exec(`
		INSERT INTO audit_logs (id, timesheet_id, log, created_at) VALUES (?, ?, ?, ?)
	`, uuid.New().String(), tsID, msg, s.now().UTC().Format(stampLayout)); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// AuditLogs returns the audit trail of a timesheet, oldest first.
func (s *Store) AuditLogs(tsID int) ([]model.AuditLog, error) {
	rows, err := s.db.Query(`
		SELECT id, timesheet_id, log, created_at FROM audit_logs
		WHERE timesheet_id = ? ORDER BY created_at, rowid
	`, tsID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var out []model.AuditLog
	for rows.Next() {
		var l model.AuditLog
		var at string
		if err := rows.Scan(&l.ID, &l.TimesheetID, &l.Log, &at); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if l.Timestamp, err = time.Parse(stampLayout, at); err != nil {
			return nil, fmt.Errorf("audit log %s: bad timestamp %q: %w", l.ID, at, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
