package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	completeDate string
	completeYes  bool
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Submit a timesheet as completed",
	Args:  cobra.NoArgs,
	RunE:  runComplete,
}

func init() {
	completeCmd.Flags().StringVar(&completeDate, "date", "", "Complete the timesheet containing this date (YYYY-MM-DD)")
	completeCmd.Flags().BoolVarP(&completeYes, "yes", "y", false, "Do not ask for confirmation")
}

func runComplete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, completeYes)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	if err := a.load(ctx, completeDate, false, false); err != nil {
		return err
	}

	id := a.session.Timesheet().ID
	if err := a.session.Complete(ctx); err != nil {
		return err
	}
	ts := a.session.Timesheet()
	fmt.Fprintf(cmd.OutOrStdout(), "Timesheet %d completed. Current timesheet: %d (%s - %s).\n",
		id, ts.ID, ts.PayPeriod.Begin, ts.PayPeriod.End)
	return nil
}
