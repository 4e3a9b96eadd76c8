package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timegrid/internal/render"
)

var (
	showDate     string
	showNext     bool
	showPrevious bool
	showOffline  bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a timesheet grid with totals",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showDate, "date", "", "Show the timesheet containing this date (YYYY-MM-DD)")
	showCmd.Flags().BoolVar(&showNext, "next", false, "Show the pay period after the selected one")
	showCmd.Flags().BoolVar(&showPrevious, "previous", false, "Show the pay period before the selected one")
	showCmd.Flags().BoolVar(&showOffline, "offline", false, "Show the locally cached copy without contacting the server")
	showCmd.MarkFlagsMutuallyExclusive("next", "previous")
}

func runShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if showOffline {
		ts, idx, err := offlineSheet(showDate)
		if err != nil {
			return err
		}
		fmt.Fprint(out, render.Timesheet(ts, idx, nil))
		fmt.Fprintln(cmd.ErrOrStderr(), "(offline copy)")
		return nil
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.load(cmd.Context(), showDate, showNext, showPrevious); err != nil {
		return err
	}
	tr := a.session.Tracker()
	fmt.Fprint(out, render.Timesheet(a.session.Timesheet(), tr.Index(), tr))
	return nil
}
