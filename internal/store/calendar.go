package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Tiliavir/timegrid/internal/model"
)

// AddPayPeriod records pp. Adding an existing period is a no-op.
func (s *Store) AddPayPeriod(pp model.PayPeriod) error {
	return addPayPeriod(s.db, pp)
}

func addPayPeriod(q querier, pp model.PayPeriod) error {
	if _, err := q.Exec(`
		INSERT OR IGNORE INTO pay_periods (begin_day, end_day, type) VALUES (?, ?, ?)
	`, pp.Begin, pp.End, string(pp.Type)); err != nil {
		return fmt.Errorf("failed to add pay period %s: %w", pp.Begin, err)
	}
	return nil
}

func scanPayPeriod(row *sql.Row) (model.PayPeriod, error) {
	var pp model.PayPeriod
	var typ string
	err := row.Scan(&pp.Begin, &pp.End, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PayPeriod{}, ErrNotFound
	}
	if err != nil {
		return model.PayPeriod{}, fmt.Errorf("failed to read pay period: %w", err)
	}
	pp.Type = model.PayPeriodType(typ)
	return pp, nil
}

// PayPeriod returns the pay period starting on begin.
func (s *Store) PayPeriod(begin string) (model.PayPeriod, error) {
	return payPeriod(s.db, begin)
}

func payPeriod(q querier, begin string) (model.PayPeriod, error) {
	return scanPayPeriod(q.QueryRow(`
		SELECT begin_day, end_day, type FROM pay_periods WHERE begin_day = ?
	`, begin))
}

// LatestPayPeriod returns the pay period with the latest begin day.
func (s *Store) LatestPayPeriod() (model.PayPeriod, error) {
	return scanPayPeriod(s.db.QueryRow(`
		SELECT begin_day, end_day, type FROM pay_periods ORDER BY begin_day DESC LIMIT 1
	`))
}

// PayPeriodContaining returns the pay period that contains day. A period not
// yet recorded is derived from the latest one and stored.
func (s *Store) PayPeriodContaining(day string) (model.PayPeriod, error) {
	pp, err := scanPayPeriod(s.db.QueryRow(`
		SELECT begin_day, end_day, type FROM pay_periods
		WHERE begin_day <= ? AND end_day >= ?
		ORDER BY begin_day DESC LIMIT 1
	`, day, day))
	if !errors.Is(err, ErrNotFound) {
		return pp, err
	}

	anchor, err := s.LatestPayPeriod()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.PayPeriod{}, fmt.Errorf("no pay periods configured: %w", err)
		}
		return model.PayPeriod{}, err
	}
	pp, err = anchor.Containing(day)
	if err != nil {
		return model.PayPeriod{}, err
	}
	if err := s.AddPayPeriod(pp); err != nil {
		return model.PayPeriod{}, err
	}
	return pp, nil
}

// NextPayPeriod returns the period following pp, creating it when missing.
func (s *Store) NextPayPeriod(pp model.PayPeriod) (model.PayPeriod, error) {
	return nextPayPeriod(s.db, pp)
}

func nextPayPeriod(q querier, pp model.PayPeriod) (model.PayPeriod, error) {
	next, err := pp.Next()
	if err != nil {
		return model.PayPeriod{}, err
	}
	existing, err := payPeriod(q, next.Begin)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.PayPeriod{}, err
	}
	if err := addPayPeriod(q, next); err != nil {
		return model.PayPeriod{}, err
	}
	return next, nil
}

// AddHoliday records a company holiday.
func (s *Store) AddHoliday(h model.Holiday) error {
	if _, err := s.db.Exec(`
		INSERT OR REPLACE INTO holidays (day, description) VALUES (?, ?)
	`, h.Day, h.Description); err != nil {
		return fmt.Errorf("failed to add holiday %s: %w", h.Day, err)
	}
	return nil
}

func (s *Store) holidays(pp model.PayPeriod) ([]model.Holiday, error) {
	rows, err := s.db.Query(`
		SELECT day, description FROM holidays WHERE day BETWEEN ? AND ? ORDER BY day
	`, pp.Begin, pp.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []model.Holiday
	for rows.Next() {
		var h model.Holiday
		if err := rows.Scan(&h.Day, &h.Description); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// AddTask inserts a task and returns its id. Assignments and bills on t are
// ignored.
func (s *Store) AddTask(t model.Task) (int, error) {
	res, err := s.db.Exec(`
		INSERT INTO tasks (description, administrative) VALUES (?, ?)
	`, t.Description, boolInt(t.Administrative))
	if err != nil {
		return 0, fmt.Errorf("failed to add task %q: %w", t.Description, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get task id: %w", err)
	}
	return int(id), nil
}

// AddAssignment assigns userID to taskID for a's validity window.
func (s *Store) AddAssignment(taskID, userID int, a model.Assignment) (int, error) {
	res, err := s.db.Exec(`
		INSERT INTO assignments (task_id, user_id, labor_cat, begin_day, end_day)
		VALUES (?, ?, ?, ?, ?)
	`, taskID, userID, a.LaborCat, a.Begin, a.End)
	if err != nil {
		return 0, fmt.Errorf("failed to add assignment for task %d: %w", taskID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get assignment id: %w", err)
	}
	return int(id), nil
}
