package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/runlog"
	"github.com/kilianp07/saltplan/pkg/export"
)

var runsOpts struct {
	start string
	end   string
	batch string
	limit int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded planning runs",
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsOpts.start, "start", "", "first day, YYYY-MM-DD")
	f.StringVar(&runsOpts.end, "end", "", "last day, YYYY-MM-DD, inclusive")
	f.StringVar(&runsOpts.batch, "batch", "", "only runs that placed, left unplaced or released this batch")
	f.IntVar(&runsOpts.limit, "limit", 0, "keep the most recent N runs")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, _ []string) error {
	q := runlog.RunQuery{BatchID: runsOpts.batch, Limit: runsOpts.limit}
	if runsOpts.start != "" {
		d, err := calendar.Parse(runsOpts.start)
		if err != nil {
			return err
		}
		q.Start = d
	}
	if runsOpts.end != "" {
		d, err := calendar.Parse(runsOpts.end)
		if err != nil {
			return err
		}
		q.End = calendar.AddDays(d, 1).Add(-time.Nanosecond)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := runlog.NewStore(cfg.RunLog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	if records == nil {
		records = []runlog.RunRecord{}
	}
	return export.WriteJSON(cmd.OutOrStdout(), records)
}
