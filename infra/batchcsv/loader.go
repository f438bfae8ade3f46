// Package batchcsv reads and writes batch tables in the plant's CSV layout.
// Spanish production headers and their English equivalents are both
// accepted.
package batchcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/model"
)

// Column identifies a logical batch field.
type Column int

const (
	ColID Column = iota
	ColProduct
	ColReception
	ColQuantity
	ColOptimalDwell
	ColEntry
	ColExit
	ColClass
	ColNitrification
	ColNoFit
)

// aliases maps every accepted header, upper-cased, to its column.
var aliases = map[string]Column{
	"LOTE":                ColID,
	"ID":                  ColID,
	"BATCH_ID":            ColID,
	"PRODUCTO":            ColProduct,
	"PRODUCT_CODE":        ColProduct,
	"PRODUCT":             ColProduct,
	"DIA":                 ColReception,
	"RECEPTION_DATE":      ColReception,
	"UNDS":                ColQuantity,
	"QUANTITY":            ColQuantity,
	"DIAS_SAL_OPTIMOS":    ColOptimalDwell,
	"DIAS SAL OPTIMOS":    ColOptimalDwell,
	"OPTIMAL_DWELL_DAYS":  ColOptimalDwell,
	"ENTRADA_SAL":         ColEntry,
	"ENTRADA SAL":         ColEntry,
	"ENTRY_DATE":          ColEntry,
	"SALIDA_SAL":          ColExit,
	"SALIDA SAL":          ColExit,
	"EXIT_DATE":           ColExit,
	"TIPO NITRIF":         ColClass,
	"TIPO_NITRIF":         ColClass,
	"PRODUCT_CLASS":       ColClass,
	"NITRIF":              ColNitrification,
	"NITRIFICATION_LEVEL": ColNitrification,
	"LOTE_NO_ENCAJA":      ColNoFit,
	"NO_FIT":              ColNoFit,
}

var dateLayouts = []string{
	calendar.Layout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
}

// Loader decodes batch rows.
type Loader struct {
	// Comma is the field delimiter. Zero means auto-detect between ',' and ';'.
	Comma rune
}

// NewLoader creates a loader with delimiter auto-detection.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads batches from a CSV file.
func (l *Loader) LoadFile(filename string) ([]model.Batch, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()
	return l.Load(file)
}

// Load reads batches from r. Unknown columns are ignored. Unparsable dates
// are left empty and unparsable quantities read as 0.
func (l *Loader) Load(r io.Reader) ([]model.Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch CSV: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = l.Comma
	if reader.Comma == 0 {
		reader.Comma = sniffComma(text)
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("batch CSV must have a header row")
	}

	index, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	batches := make([]model.Batch, 0, len(records)-1)
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		batches = append(batches, parseBatch(i+1, record, index))
	}
	return batches, nil
}

func mapHeader(header []string) (map[Column]int, error) {
	index := make(map[Column]int)
	for i, h := range header {
		col, ok := aliases[strings.ToUpper(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	for _, required := range []Column{ColProduct, ColReception, ColQuantity} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("batch CSV header %v lacks a %s column", header, required)
		}
	}
	return index, nil
}

func parseBatch(row int, record []string, index map[Column]int) model.Batch {
	field := func(c Column) string {
		i, ok := index[c]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	b := model.Batch{
		ID:               field(ColID),
		ProductCode:      field(ColProduct),
		Quantity:         max(0, parseInt(field(ColQuantity))),
		OptimalDwellDays: parseInt(field(ColOptimalDwell)),
		Class:            model.ClassifyProduct(field(ColClass)),
		Nitrification:    model.ParseNitrification(field(ColNitrification)),
	}
	if b.ID == "" {
		b.ID = strconv.Itoa(row)
	}
	if d, ok := ParseDate(field(ColReception)); ok {
		b.ReceptionDate = d
	}
	// An entry without an exit is dropped and the row is planned again.
	entry, hasEntry := ParseDate(field(ColEntry))
	exit, hasExit := ParseDate(field(ColExit))
	switch {
	case hasEntry && hasExit && !b.ReceptionDate.IsZero():
		b.Place(entry, exit)
	case hasEntry && hasExit:
		b.EntryDate, b.ExitDate = &entry, &exit
	}
	if noFit(field(ColNoFit)) {
		b.Fits = model.FitNo
	} else if v := field(ColNoFit); v != "" && b.Placed() {
		b.Fits = model.FitYes
	}
	return b
}

// ParseDate accepts ISO dates, timestamps and day-first slashed dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendar.Day(t), true
		}
	}
	return time.Time{}, false
}

// parseInt reads integers and integral floats such as "120.0"; anything else is 0.
func parseInt(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// noFit reads the "does not fit" flag, which the plant writes as Sí/No.
func noFit(s string) bool {
	switch strings.ToUpper(s) {
	case "SÍ", "SI", "S", "YES", "Y", "TRUE", "1":
		return true
	}
	return false
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// sniffComma picks ';' when the header has more semicolons than commas.
func sniffComma(text string) rune {
	header, _, _ := strings.Cut(text, "\n")
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// String names the column by its canonical Spanish header.
func (c Column) String() string {
	return header[c]
}
