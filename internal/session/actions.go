package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
)

// LoadCurrent displays the user's latest timesheet.
func (s *Session) LoadCurrent(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context, _ *model.Timesheet) (*model.Timesheet, error) {
		return s.client.Current(ctx)
	})
}

// LoadDate displays the timesheet whose pay period contains day (YYYYMMDD).
func (s *Session) LoadDate(ctx context.Context, day string) error {
	return s.load(ctx, func(ctx context.Context, _ *model.Timesheet) (*model.Timesheet, error) {
		return s.client.ForDate(ctx, day)
	})
}

// LoadNext displays the timesheet of the pay period after the displayed one.
func (s *Session) LoadNext(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context, cur *model.Timesheet) (*model.Timesheet, error) {
		if cur == nil {
			return nil, ErrNoTimesheet
		}
		return s.client.Next(ctx, cur.PayPeriod.Begin)
	})
}

// LoadPrevious displays the timesheet of the pay period before the displayed one.
func (s *Session) LoadPrevious(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context, cur *model.Timesheet) (*model.Timesheet, error) {
		if cur == nil {
			return nil, ErrNoTimesheet
		}
		prev, err := cur.PayPeriod.Previous()
		if err != nil {
			return nil, err
		}
		return s.client.ForDate(ctx, prev.Begin)
	})
}

// Reload refetches the displayed timesheet, discarding local edits after
// confirmation.
func (s *Session) Reload(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context, cur *model.Timesheet) (*model.Timesheet, error) {
		if cur == nil {
			return s.client.Current(ctx)
		}
		return s.client.ForDate(ctx, cur.PayPeriod.Begin)
	})
}

func (s *Session) load(ctx context.Context, fetch func(context.Context, *model.Timesheet) (*model.Timesheet, error)) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.timer.Reset()

	if err := s.leave(ctx); err != nil {
		return err
	}
	if err := s.ensureUser(ctx); err != nil {
		return err
	}
	ts, err := fetch(ctx, s.Timesheet())
	if err != nil {
		return fmt.Errorf("fetch timesheet: %w", err)
	}
	return s.install(ts)
}

// leave checks that the displayed timesheet may be replaced. A pending
// reason always blocks; unsaved changes block unless the user agrees to
// discard them. The tracker is left as is: install replaces it once the
// new timesheet has been fetched, so a failed fetch keeps every edit and
// reason.
func (s *Session) leave(ctx context.Context) error {
	tr := s.Tracker()
	if tr == nil {
		return nil
	}
	if _, ok := tr.PendingReason(); ok {
		return grid.ErrReasonPending
	}
	if !tr.Dirty() {
		return nil
	}
	ok, err := s.confirm.Confirm(ctx, "Unsaved Changes",
		"The current timesheet has unsaved changes. Discard them?")
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnsaved
	}
	return nil
}

func (s *Session) ensureUser(ctx context.Context) error {
	if _, ok := s.User(); ok {
		return nil
	}
	u, err := s.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Edit writes input into the cell named by key. When the change needs a
// reason the prompter is asked until it supplies a non-blank one; if it is
// dismissed the reason stays pending and the error wraps
// grid.ErrReasonPending.
func (s *Session) Edit(ctx context.Context, key grid.CellKey, input string) (grid.CommitOutcome, error) {
	if err := s.acquire(); err != nil {
		return grid.CommitOutcome{}, err
	}
	defer s.release()
	s.timer.Reset()

	tr := s.Tracker()
	if tr == nil {
		return grid.CommitOutcome{}, ErrNoTimesheet
	}
	if st := s.State(); st != Editable {
		return grid.CommitOutcome{}, fmt.Errorf("%w: timesheet is %s", grid.ErrNotEditable, st)
	}
	if _, err := tr.BeginEdit(key); err != nil {
		return grid.CommitOutcome{}, err
	}
	out, err := tr.CommitEdit(key, input)
	if err != nil {
		tr.CancelEdit()
		return grid.CommitOutcome{}, err
	}
	if out.ReasonRequired {
		if err := s.askReason(ctx, tr, key); err != nil {
			return out, err
		}
	}
	return out, nil
}

// ResumeReason prompts again for a reason left pending by a dismissed prompt.
func (s *Session) ResumeReason(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	tr := s.Tracker()
	if tr == nil {
		return ErrNoTimesheet
	}
	key, ok := tr.PendingReason()
	if !ok {
		return grid.ErrNoPendingReason
	}
	return s.askReason(ctx, tr, key)
}

func (s *Session) askReason(ctx context.Context, tr *grid.Tracker, key grid.CellKey) error {
	label := fmt.Sprintf("Reason for changing the hours on %s", key.Day)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", grid.ErrReasonPending, err)
		}
		reason, err := s.prompt.Prompt(ctx, "Edit Reason", label)
		if err != nil {
			return fmt.Errorf("%w: %v", grid.ErrReasonPending, err)
		}
		err = tr.SupplyReason(reason)
		if errors.Is(err, grid.ErrReasonRequired) {
			continue
		}
		return err
	}
}

// Save sends the grid to the server and clears the dirty marks.
func (s *Session) Save(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.timer.Reset()

	ts, tr, err := s.editable()
	if err != nil {
		return err
	}
	payload := tr.Serialize()
	if err := s.client.Save(ctx, ts.ID, payload); err != nil {
		return fmt.Errorf("save timesheet %d: %w", ts.ID, err)
	}
	tr.MarkSaved()

	recs, err := grid.ParseRecords(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	err = grid.Apply(ts, recs)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.mirror != nil {
		return s.mirror.SaveTimesheet(ts)
	}
	return nil
}

// Complete asks for confirmation, submits the grid and marks the timesheet
// completed. On success the current timesheet is fetched again.
func (s *Session) Complete(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.timer.Reset()

	ts, tr, err := s.editable()
	if err != nil {
		return err
	}

	s.setState(Completing)
	ok, err := s.confirm.Confirm(ctx, "Complete Timesheet",
		"Are you sure you want to close out this timesheet?")
	if err != nil || !ok {
		s.setState(Editable)
		if err != nil {
			return err
		}
		return ErrDeclined
	}

	if err := s.client.Complete(ctx, ts.ID, tr.Serialize()); err != nil {
		s.setState(Editable)
		return fmt.Errorf("complete timesheet %d: %w", ts.ID, err)
	}
	tr.MarkSaved()
	s.setState(Completed)

	next, err := s.client.Current(ctx)
	if err != nil {
		s.mu.Lock()
		ts.Completed = true
		s.mu.Unlock()
		if ierr := s.install(ts); ierr != nil {
			return ierr
		}
		return fmt.Errorf("refetch after completing timesheet %d: %w", ts.ID, err)
	}
	return s.install(next)
}

// Fix asks for confirmation and reopens a completed, unapproved timesheet.
// The held document is patched and redisplayed without a refetch.
func (s *Session) Fix(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.timer.Reset()

	if !s.CanFix() {
		return fmt.Errorf("%w: fix needs a completed, unapproved timesheet of your own", ErrWrongState)
	}
	ts := s.Timesheet()

	s.setState(Fixing)
	ok, err := s.confirm.Confirm(ctx, "Fix Timesheet",
		"Are you sure you want to re-open this completed timesheet to make changes?")
	if err != nil || !ok {
		s.setState(Completed)
		if err != nil {
			return err
		}
		return ErrDeclined
	}

	if err := s.client.Fix(ctx, ts.ID); err != nil {
		s.setState(Completed)
		return fmt.Errorf("fix timesheet %d: %w", ts.ID, err)
	}
	s.mu.Lock()
	ts.Completed = false
	s.mu.Unlock()
	return s.install(ts)
}

// editable returns the displayed timesheet when it may be saved or completed.
func (s *Session) editable() (*model.Timesheet, *grid.Tracker, error) {
	ts, tr := s.Timesheet(), s.Tracker()
	if ts == nil || tr == nil {
		return nil, nil, ErrNoTimesheet
	}
	if st := s.State(); st != Editable {
		return nil, nil, fmt.Errorf("%w: timesheet is %s", ErrWrongState, st)
	}
	if _, ok := tr.PendingReason(); ok {
		return nil, nil, grid.ErrReasonPending
	}
	return ts, tr, nil
}
