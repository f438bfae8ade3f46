package batchcsv

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/model"
)

// header is the column order written by Write, indexed by Column.
var header = []string{
	"LOTE", "PRODUCTO", "DIA", "UNDS", "DIAS_SAL_OPTIMOS", "ENTRADA_SAL",
	"SALIDA_SAL", "TIPO NITRIF", "NITRIF", "LOTE_NO_ENCAJA",
}

// derived are appended after the input columns.
var derived = []string{"DIAS_SAL", "DIAS_ALMACENADOS", "DIFERENCIA_DIAS_SAL"}

// Write encodes batches in the plant layout, including the derived day counts.
// The output round-trips through Loader.Load.
func Write(w io.Writer, batches []model.Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, header...), derived...)); err != nil {
		return err
	}
	for _, b := range batches {
		if err := cw.Write(record(b)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(b model.Batch) []string {
	return []string{
		b.ID,
		b.ProductCode,
		formatDate(b.ReceptionDate),
		strconv.Itoa(b.Quantity),
		strconv.Itoa(b.OptimalDwellDays),
		formatDatePtr(b.EntryDate),
		formatDatePtr(b.ExitDate),
		formatClass(b.Class),
		formatIntPtr(b.Nitrification),
		formatFit(b.Fits),
		formatIntPtr(b.DwellDays),
		formatIntPtr(b.StorageDays),
		formatIntPtr(b.DwellDeviation),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(calendar.Layout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func formatIntPtr(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func formatClass(c model.ProductClass) string {
	switch c {
	case model.ClassIberico:
		return "IBERICO"
	case model.ClassBlanco:
		return "BLANCO"
	}
	return ""
}

func formatFit(f model.Fit) string {
	switch f {
	case model.FitYes:
		return "No"
	case model.FitNo:
		return "Sí"
	}
	return ""
}
