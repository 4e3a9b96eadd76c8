package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	fixDate string
	fixYes  bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Re-open a completed timesheet",
	Args:  cobra.NoArgs,
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixDate, "date", "", "Re-open the timesheet containing this date (YYYY-MM-DD)")
	fixCmd.Flags().BoolVarP(&fixYes, "yes", "y", false, "Do not ask for confirmation")
}

func runFix(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, fixYes)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	if err := a.load(ctx, fixDate, false, false); err != nil {
		return err
	}
	if err := a.session.Fix(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Timesheet %d re-opened.\n", a.session.Timesheet().ID)
	return nil
}
