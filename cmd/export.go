package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timegrid/internal/export"
	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
)

var (
	exportFormat  string
	exportDate    string
	exportOffline bool
	exportOutput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a timesheet grid",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md, xlsx")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Export the timesheet containing this date (YYYY-MM-DD)")
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "Export the locally cached copy")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var ts *model.Timesheet
	var idx *grid.Index
	if exportOffline {
		if ts, idx, err = offlineSheet(exportDate); err != nil {
			return err
		}
	} else {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.load(cmd.Context(), exportDate, false, false); err != nil {
			return err
		}
		ts, idx = a.session.Timesheet(), a.session.Tracker().Index()
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, format, ts, idx); err != nil {
		return err
	}
	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s.\n", exportOutput)
	}
	return nil
}
