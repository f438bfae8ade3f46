package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/saltplan/app"
	"github.com/kilianp07/saltplan/pkg/export"
)

type planFlags struct {
	input        string
	output       string
	suggestions  string
	report       string
	format       string
	release      []string
	releaseUnfit bool
}

var planOpts planFlags

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Assign entry and exit dates to the batches of an export",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVarP(&planOpts.input, "input", "i", "", "batch file (plant CSV or JSON)")
	f.StringVarP(&planOpts.output, "output", "o", "", "planned batches, stdout when empty")
	f.StringVar(&planOpts.suggestions, "suggestions", "", "write suggestions for unplaced batches to this file")
	f.StringVar(&planOpts.report, "report", "", "write the stabilization report to this file")
	f.StringVarP(&planOpts.format, "format", "f", "csv", "output format: csv or json")
	f.StringSliceVar(&planOpts.release, "release", nil, "batch ids whose dates are cleared before planning")
	f.BoolVar(&planOpts.releaseUnfit, "release-unfit", false, "clear unplaced and not fitting batches before planning")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := export.ParseFormat(planOpts.format)
	if err != nil {
		return err
	}
	batches, err := readBatches(planOpts.input)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.log.Errorf("shutdown: %v", err)
		}
	}()

	out, err := rt.svc.Plan(ctx, app.Request{
		Batches:      batches,
		Release:      planOpts.release,
		ReleaseUnfit: planOpts.releaseUnfit,
	})
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	stdout := cmd.OutOrStdout()
	if err := writeTo(planOpts.output, stdout, func(w io.Writer) error {
		return export.WritePlan(w, format, out.Result)
	}); err != nil {
		return err
	}
	if planOpts.suggestions != "" {
		if err := writeTo(planOpts.suggestions, stdout, func(w io.Writer) error {
			return export.WriteSuggestions(w, format, out.Suggestions)
		}); err != nil {
			return err
		}
	}
	if planOpts.report != "" {
		if err := writeTo(planOpts.report, stdout, func(w io.Writer) error {
			return export.WriteReport(w, format, out.Stabilization)
		}); err != nil {
			return err
		}
	}
	rt.log.Infof("run %s: %d placed, %d unplaced, %d suggestions",
		out.RunID, out.Stats.Placed, len(out.Stats.Unplaced), len(out.Suggestions))
	return nil
}
