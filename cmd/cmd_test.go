package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/core/runlog"
	"github.com/kilianp07/saltplan/infra/batchcsv"
)

const batchesCSV = `LOTE;PRODUCTO;DIA;UNDS;DIAS SAL OPTIMOS
L1;JTEST;03/03/2025;1000;10
L2;JTEST;03/03/2025;9000;10
`

func resetFlags() {
	cfgPath, logLevel = "", ""
	planOpts = planFlags{format: "csv"}
	reportOpts.input, reportOpts.output, reportOpts.format = "", "", "csv"
	releaseOpts.input, releaseOpts.output, releaseOpts.format = "", "", "csv"
	releaseOpts.ids, releaseOpts.unfit = nil, false
	runsOpts.start, runsOpts.end, runsOpts.batch, runsOpts.limit = "", "", "", 0
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return buf.String()
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func setup(t *testing.T) (dir, cfg string) {
	t.Helper()
	dir = t.TempDir()
	cfg = writeFile(t, dir, "saltplan.yaml", `
logging:
  level: error
runlog:
  backend: jsonl
  path: `+filepath.Join(dir, "runs.jsonl")+`
metrics:
  textfile_path: `+filepath.Join(dir, "saltplan.prom")+`
`)
	return dir, cfg
}

func TestPlanRunsRelease(t *testing.T) {
	dir, cfg := setup(t)
	input := writeFile(t, dir, "lotes.csv", batchesCSV)
	planned := filepath.Join(dir, "plan.csv")
	suggestions := filepath.Join(dir, "suggestions.json")

	execute(t, "plan", "-c", cfg, "-i", input, "-o", planned)
	batches, err := batchcsv.NewLoader().LoadFile(planned)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.True(t, batches[0].Placed())
	assert.False(t, batches[1].Placed())
	assert.Equal(t, model.FitNo, batches[1].Fits)
	assert.FileExists(t, filepath.Join(dir, "saltplan.prom"))

	out := execute(t, "runs", "-c", cfg, "--batch", "L2")
	var runs []runlog.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"L2"}, runs[0].UnplacedIDs)
	assert.Equal(t, []string{"L1"}, runs[0].PlacedIDs)

	out = execute(t, "release", "-c", cfg, "-i", planned, "--ids", "L1", "-f", "json")
	var released []model.Batch
	require.NoError(t, json.Unmarshal([]byte(out), &released))
	require.Len(t, released, 2)
	assert.False(t, released[0].Placed())

	execute(t, "plan", "-c", cfg, "-i", planned, "--release-unfit", "-f", "json",
		"-o", filepath.Join(dir, "plan.json"), "--suggestions", suggestions)
	data, err := os.ReadFile(suggestions)
	require.NoError(t, err)
	var rows []model.SuggestionRow
	require.NoError(t, json.Unmarshal(data, &rows))
	require.NotEmpty(t, rows)
	assert.Equal(t, "L2", rows[0].BatchID)

	out = execute(t, "runs", "-c", cfg, "--limit", "1")
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"L2"}, runs[0].Released)
}

func TestReportCommand(t *testing.T) {
	dir, cfg := setup(t)
	input := writeFile(t, dir, "placed.json", `{"batches":[{"id":"L1","product_code":"PTEST",
	  "reception_date":"2025-03-03T00:00:00Z","quantity":100,
	  "entry_date":"2025-03-05T00:00:00Z","exit_date":"2025-03-14T00:00:00Z"}]}`)

	out := execute(t, "report", "-c", cfg, "-i", input, "-f", "json")
	var rep planner.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Days, 2)
	assert.Equal(t, 100, rep.Days[0].Shoulder)
	assert.Equal(t, 0, rep.Summary.DaysOverCapacity)

	out = execute(t, "report", "-c", cfg, "-i", input)
	assert.True(t, strings.HasPrefix(out, "FECHA"), out)
}

func TestReadBatchesJSONArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "b.json", `[{"id":"A","product_code":"JX","reception_date":"2025-03-03T00:00:00Z","quantity":5}]`)
	batches, err := readBatches(path)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 5, batches[0].Quantity)

	_, err = readBatches("")
	assert.Error(t, err)
}
