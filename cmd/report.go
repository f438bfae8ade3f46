package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/pkg/export"
)

var reportOpts struct {
	input  string
	output string
	format string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute stabilization chamber occupancy of already placed batches",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportOpts.input, "input", "i", "", "batch file (plant CSV or JSON)")
	f.StringVarP(&reportOpts.output, "output", "o", "", "report file, stdout when empty")
	f.StringVarP(&reportOpts.format, "format", "f", "csv", "output format: csv or json")
	rootCmd.AddCommand(reportCmd)
}

// runReport needs only the planner configuration, no sink or publisher.
func runReport(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(reportOpts.format)
	if err != nil {
		return err
	}
	batches, err := readBatches(reportOpts.input)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := planner.New(cfg.Planner)
	if err != nil {
		return err
	}
	rep := p.Report(batches)
	return writeTo(reportOpts.output, cmd.OutOrStdout(), func(w io.Writer) error {
		return export.WriteReport(w, format, rep)
	})
}
