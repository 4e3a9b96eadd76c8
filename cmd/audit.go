package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditDate string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the change history of a timesheet",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditDate, "date", "", "Use the timesheet containing this date (YYYY-MM-DD)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	if err := a.load(ctx, auditDate, false, false); err != nil {
		return err
	}
	logs, err := a.api.Audit(ctx, a.session.Timesheet().ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(logs) == 0 {
		fmt.Fprintln(out, "No changes recorded.")
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(out, "%s  %s\n", l.Timestamp.Local().Format("2006-01-02 15:04"), l.Log)
	}
	return nil
}
