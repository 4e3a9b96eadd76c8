package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timegrid/internal/render"
	"github.com/Tiliavir/timegrid/internal/session"
)

var editDate string

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a timesheet interactively",
	Args:  cobra.NoArgs,
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editDate, "date", "", "Open the timesheet containing this date (YYYY-MM-DD)")
}

const editHelp = `Commands:
  set ROW DAY HOURS   enter hours (ROW is "7" or "9_12", DAY is YYYY-MM-DD)
  clear ROW DAY       remove the hours of a cell
  reason              answer a pending reason prompt
  show                print the grid
  save | complete | fix
  next | prev | goto DATE | reload
  help | quit`

func runEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.load(cmd.Context(), editDate, false, false); err != nil {
		return err
	}
	return a.repl(cmd.Context(), cmd.OutOrStdout())
}

// repl runs editor commands read from the terminal until quit or end of
// input. Command errors are printed and the loop goes on.
func (a *app) repl(ctx context.Context, out io.Writer) error {
	a.show(out)
	fmt.Fprintln(out, `Type "help" for commands.`)
	for {
		fmt.Fprint(out, "timegrid> ")
		line, err := a.term.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return a.quit(ctx)
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			if err := a.quit(ctx); err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			return nil
		}
		if err := a.dispatch(ctx, out, fields); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func (a *app) dispatch(ctx context.Context, out io.Writer, f []string) error {
	s := a.session
	want := func(n int) error {
		if len(f) != n+1 {
			return fmt.Errorf("%w: %s takes %d argument(s)", errUsage, f[0], n)
		}
		return nil
	}

	switch f[0] {
	case "help":
		fmt.Fprintln(out, editHelp)
		return nil
	case "show":
		a.show(out)
		return nil
	case "set", "clear":
		var e edit
		if f[0] == "set" {
			if err := want(3); err != nil {
				return err
			}
			e = edit{row: f[1], day: f[2], hours: f[3]}
		} else {
			if err := want(2); err != nil {
				return err
			}
			e = edit{row: f[1], day: f[2]}
		}
		res, err := a.applyEdit(ctx, e)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, describe(res))
		return nil
	case "reason":
		return s.ResumeReason(ctx)
	case "save":
		if err := s.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Saved.")
		return nil
	case "complete":
		if err := s.Complete(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Completed.")
	case "fix":
		if err := s.Fix(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Re-opened.")
	case "next":
		if err := s.LoadNext(ctx); err != nil {
			return err
		}
	case "prev":
		if err := s.LoadPrevious(ctx); err != nil {
			return err
		}
	case "goto":
		if err := want(1); err != nil {
			return err
		}
		day, err := parseDate(f[1])
		if err != nil {
			return err
		}
		if err := s.LoadDate(ctx, day); err != nil {
			return err
		}
	case "reload":
		if err := s.Reload(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, f[0])
	}
	a.show(out)
	return nil
}

func (a *app) show(out io.Writer) {
	ts, tr := a.session.Timesheet(), a.session.Tracker()
	if ts == nil || tr == nil {
		return
	}
	fmt.Fprint(out, render.Timesheet(ts, tr.Index(), tr))
	fmt.Fprintf(out, "State: %s\n", a.session.State())
}

// quit refuses to drop a pending reason and asks before dropping unsaved
// changes.
func (a *app) quit(ctx context.Context) error {
	tr := a.session.Tracker()
	if tr == nil || !tr.Dirty() {
		return nil
	}
	if _, ok := tr.PendingReason(); ok {
		return fmt.Errorf("%w: answer it with \"reason\" first", session.ErrUnsaved)
	}
	ok, err := a.term.Confirm(ctx, "Unsaved Changes", "Quit without saving?")
	if err != nil {
		return err
	}
	if !ok {
		return session.ErrUnsaved
	}
	return nil
}
