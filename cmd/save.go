package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveDate string

var saveCmd = &cobra.Command{
	Use:   "save ROW:DAY:HOURS[:REASON]...",
	Short: "Enter hours and save the timesheet",
	Long: `Enter hours into cells and save the timesheet.

ROW is a task id ("7") or task and assignment ids ("9_12"), DAY is
YYYY-MM-DD. Changing saved hours on a past day needs a REASON; without one
you are asked for it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVar(&saveDate, "date", "", "Edit the timesheet containing this date (YYYY-MM-DD)")
}

func runSave(cmd *cobra.Command, args []string) error {
	edits := make([]edit, 0, len(args))
	for _, arg := range args {
		e, err := parseEdit(arg)
		if err != nil {
			return err
		}
		edits = append(edits, e)
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	if err := a.load(ctx, saveDate, false, false); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range edits {
		res, err := a.applyEdit(ctx, e)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, describe(res))
	}
	if err := a.session.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Timesheet %d saved.\n", a.session.Timesheet().ID)
	return nil
}
