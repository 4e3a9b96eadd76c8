package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timegrid/internal/client"
	"github.com/Tiliavir/timegrid/internal/config"
	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/session"
	"github.com/Tiliavir/timegrid/internal/storage"
	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// errUsage marks bad command-line input.
var errUsage = errors.New("invalid usage")

// exitCode maps err to the process exit status: 1 for user errors, 2 for
// storage and network failures.
func exitCode(err error) int {
	var verr *grid.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, errUsage),
		errors.Is(err, grid.ErrMalformedKey),
		errors.Is(err, grid.ErrUnknownCell),
		errors.Is(err, grid.ErrNotEditable),
		errors.Is(err, grid.ErrReasonRequired),
		errors.Is(err, grid.ErrReasonPending),
		errors.Is(err, grid.ErrNoPendingReason),
		errors.Is(err, session.ErrDeclined),
		errors.Is(err, session.ErrUnsaved),
		errors.Is(err, session.ErrWrongState),
		errors.Is(err, session.ErrNoTimesheet),
		errors.Is(err, client.ErrNotLoggedIn):
		return 1
	}
	return 2
}

// parseDate accepts YYYY-MM-DD or YYYYMMDD and returns YYYYMMDD.
func parseDate(s string) (string, error) {
	day := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if _, err := timecalc.ParseDay(day); err != nil {
		return "", fmt.Errorf("%w: invalid date %q", errUsage, s)
	}
	return day, nil
}

// cellKey addresses a cell of timesheet id by row ("7", "7_" or "7_12") and
// day.
func cellKey(id int, row, day string) (grid.CellKey, error) {
	d, err := parseDate(day)
	if err != nil {
		return grid.CellKey{}, err
	}
	if !strings.Contains(row, "_") {
		row += "_"
	}
	return grid.ParseCellKey(fmt.Sprintf("cell%d_%s_%s", id, row, d))
}

// edit is one ROW:DAY:HOURS[:REASON] argument.
type edit struct {
	row, day, hours, reason string
}

func parseEdit(arg string) (edit, error) {
	parts := strings.SplitN(arg, ":", 4)
	if len(parts) < 3 {
		return edit{}, fmt.Errorf("%w: %q is not ROW:DAY:HOURS[:REASON]", errUsage, arg)
	}
	e := edit{row: parts[0], day: parts[1], hours: parts[2]}
	if len(parts) == 4 {
		e.reason = parts[3]
	}
	return e, nil
}

// app bundles what the online commands need.
type app struct {
	cfg     config.Config
	api     *client.Client
	session *session.Session
	term    *terminal
	timer   *idleTimer
}

// openApp loads the config and token and wires a session to the API, the
// terminal and the local timesheet cache.
func openApp(cmd *cobra.Command, assumeYes bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path, err := client.TokenPath()
	if err != nil {
		return nil, err
	}
	hc, err := client.HTTPClient(cmd.Context(), cfg.Auth, path, cfg.Server.Timeout())
	if err != nil {
		return nil, err
	}
	mirror, err := storage.Open()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:   cfg,
		api:   client.New(cfg.Server.BaseURL, hc),
		term:  newTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), assumeYes),
		timer: newIdleTimer(time.Duration(cfg.Session.IdleMinutes)*time.Minute, cmd.ErrOrStderr()),
	}
	a.session, err = session.New(session.Options{
		Client:    a.api,
		Confirmer: a.term,
		Prompter:  a.term,
		Timer:     a.timer,
		Mirror:    mirror,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close() { a.timer.Stop() }

// load displays the timesheet picked by the date/next/previous flags.
func (a *app) load(ctx context.Context, date string, next, previous bool) error {
	var err error
	if date != "" {
		var day string
		if day, err = parseDate(date); err != nil {
			return err
		}
		err = a.session.LoadDate(ctx, day)
	} else {
		err = a.session.LoadCurrent(ctx)
	}
	if err != nil {
		return err
	}
	switch {
	case next:
		return a.session.LoadNext(ctx)
	case previous:
		return a.session.LoadPrevious(ctx)
	}
	return nil
}

// applyEdit writes one edit through the session, answering a reason prompt
// with the edit's reason when it has one.
func (a *app) applyEdit(ctx context.Context, e edit) (grid.CommitOutcome, error) {
	ts := a.session.Timesheet()
	if ts == nil {
		return grid.CommitOutcome{}, session.ErrNoTimesheet
	}
	key, err := cellKey(ts.ID, e.row, e.day)
	if err != nil {
		return grid.CommitOutcome{}, err
	}
	if e.reason != "" {
		a.term.queue(e.reason)
	}
	defer a.term.clearQueue()
	return a.session.Edit(ctx, key, e.hours)
}

// offlineSheet reads a timesheet from the local cache.
func offlineSheet(date string) (*model.Timesheet, *grid.Index, error) {
	st, err := storage.Open()
	if err != nil {
		return nil, nil, err
	}
	var ts *model.Timesheet
	if date == "" {
		ts, err = st.Latest()
	} else {
		var day string
		if day, err = parseDate(date); err != nil {
			return nil, nil, err
		}
		ts, err = st.ForDate(day)
	}
	if err != nil {
		return nil, nil, err
	}
	// Cached copies are shown read-only.
	idx, err := grid.Build(ts, grid.Options{UserID: -1, Now: time.Now()})
	if err != nil {
		return nil, nil, err
	}
	return ts, idx, nil
}

func describe(out grid.CommitOutcome) string {
	v := out.Value
	if v == "" {
		v = "(cleared)"
	}
	return fmt.Sprintf("%s %s: %s  row %s  day %s  total %s",
		out.Key.Row(), out.Key.Day, v, out.Totals.Task, out.Totals.Day, out.Totals.Grand)
}
