// Package export writes plan results as CSV or JSON. CSV layouts use the
// column names of the plant spreadsheets.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/infra/batchcsv"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv and json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

var suggestionHeader = []string{
	"LOTE", "PRODUCTO", "UNDS", "DIA_RECEPCION",
	"ENTRADA_PROPUESTA", "SALIDA_PROPUESTA", "INTENTO",
	"DEFICIT_ENTRADA", "DEFICIT_ESTAB_MAX", "DEFICIT_SALIDA",
	"MAX_DEFICIT", "TOTAL_DEFICIT", "RECOMENDACION",
}

var reportHeader = []string{
	"FECHA", "ESTAB_UNDS", "ESTAB_PALETA", "ESTAB_JAMON",
	"CAPACIDAD", "UTIL_%", "EXCESO",
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WritePlanCSV writes the planned batches in the plant batch layout.
func WritePlanCSV(w io.Writer, batches []model.Batch) error {
	return batchcsv.Write(w, batches)
}

// WriteSuggestionsCSV writes the suggestion table.
func WriteSuggestionsCSV(w io.Writer, rows []model.SuggestionRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(suggestionHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.BatchID,
			r.ProductCode,
			strconv.Itoa(r.Quantity),
			date(r.ReceptionDate),
			date(r.ProposedEntry),
			date(r.ProposedExit),
			strconv.Itoa(r.Tier),
			strconv.Itoa(r.EntryDeficit),
			strconv.Itoa(r.StabilizationMax),
			strconv.Itoa(r.ExitDeficit),
			strconv.Itoa(r.MaxDeficit),
			strconv.Itoa(r.TotalDeficit),
			r.Recommendation,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReportCSV writes one row per stabilization day.
func WriteReportCSV(w io.Writer, rep planner.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, d := range rep.Days {
		rec := []string{
			date(d.Date),
			strconv.Itoa(d.Total),
			strconv.Itoa(d.Shoulder),
			strconv.Itoa(d.Ham),
			strconv.Itoa(d.Capacity),
			strconv.FormatFloat(d.Utilization, 'f', 1, 64),
			strconv.Itoa(d.Excess),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlan writes the batches of res in the given format.
func WritePlan(w io.Writer, f Format, res planner.Result) error {
	if f == FormatJSON {
		return WriteJSON(w, res)
	}
	return WritePlanCSV(w, res.Batches)
}

// WriteSuggestions writes the suggestion table of res in the given format.
func WriteSuggestions(w io.Writer, f Format, rows []model.SuggestionRow) error {
	if f == FormatJSON {
		if rows == nil {
			rows = []model.SuggestionRow{}
		}
		return WriteJSON(w, rows)
	}
	return WriteSuggestionsCSV(w, rows)
}

// WriteReport writes a stabilization report in the given format.
func WriteReport(w io.Writer, f Format, rep planner.Report) error {
	if f == FormatJSON {
		return WriteJSON(w, rep)
	}
	return WriteReportCSV(w, rep)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(calendar.Layout)
}
