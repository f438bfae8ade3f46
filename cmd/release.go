package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/pkg/export"
)

var releaseOpts struct {
	input  string
	output string
	format string
	ids    []string
	unfit  bool
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Clear the dates of batches so the next plan places them again",
	RunE:  runRelease,
}

func init() {
	f := releaseCmd.Flags()
	f.StringVarP(&releaseOpts.input, "input", "i", "", "batch file (plant CSV or JSON)")
	f.StringVarP(&releaseOpts.output, "output", "o", "", "released batches, stdout when empty")
	f.StringVarP(&releaseOpts.format, "format", "f", "csv", "output format: csv or json")
	f.StringSliceVar(&releaseOpts.ids, "ids", nil, "batch ids to release")
	f.BoolVar(&releaseOpts.unfit, "unfit", false, "release every unplaced or not fitting batch")
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(releaseOpts.format)
	if err != nil {
		return err
	}
	batches, err := readBatches(releaseOpts.input)
	if err != nil {
		return err
	}
	ids := releaseOpts.ids
	if releaseOpts.unfit {
		ids = append(ids, planner.ReleaseCandidates(batches)...)
	}
	if len(ids) == 0 {
		return fmt.Errorf("nothing to release: pass --ids or --unfit")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	n := planner.Release(batches, ids)
	newLogger(cfg.Logging, "release").Infof("released %d of %d batches", n, len(batches))
	return writeTo(releaseOpts.output, cmd.OutOrStdout(), func(w io.Writer) error {
		if format == export.FormatJSON {
			return export.WriteJSON(w, batches)
		}
		return export.WritePlanCSV(w, batches)
	})
}
