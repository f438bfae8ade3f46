package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/infra/batchcsv"
)

// readBatches loads batches from a plant CSV export or from JSON, either a
// bare array or an object with a "batches" field.
func readBatches(path string) ([]model.Batch, error) {
	if path == "" {
		return nil, fmt.Errorf("missing --input")
	}
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return batchcsv.NewLoader().LoadFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batches []model.Batch
	if err := json.Unmarshal(data, &batches); err == nil {
		return batches, nil
	}
	var wrapped struct {
		Batches []model.Batch `json:"batches"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return wrapped.Batches, nil
}

// writeTo calls write on the file at path, or on stdout when path is empty or "-".
func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
