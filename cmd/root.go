package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "timegrid",
	Short: "timegrid: fill in, save and submit pay-period timesheets",
	Long: `timegrid edits timesheets as a grid of tasks by days.

The client commands talk to a timesheet server (see "timegrid serve") and
keep a copy of every fetched timesheet in ~/.timegrid/ for offline viewing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}
