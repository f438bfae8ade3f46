package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchPlaceDerivesDays(t *testing.T) {
	b := Batch{ID: "L1", ReceptionDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), OptimalDwellDays: 10}
	b.Place(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))

	require.True(t, b.Placed())
	assert.Equal(t, 2, *b.StorageDays)
	assert.Equal(t, 9, *b.DwellDays)
	assert.Equal(t, -1, *b.DwellDeviation)
	assert.Equal(t, FitYes, b.Fits)
}

func TestBatchRelease(t *testing.T) {
	b := Batch{ID: "L1", ReceptionDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)}
	b.Place(b.ReceptionDate, b.ReceptionDate)
	b.Release()
	assert.False(t, b.Placed())
	assert.Nil(t, b.ExitDate)
	assert.Nil(t, b.DwellDays)
	assert.Nil(t, b.StorageDays)
	assert.Nil(t, b.DwellDeviation)
	assert.Equal(t, FitUnknown, b.Fits)
}

func TestBatchMalformedAndValidate(t *testing.T) {
	assert.True(t, Batch{ID: "x"}.Malformed())
	assert.True(t, Batch{ID: "x", ReceptionDate: time.Now(), OptimalDwellDays: -1}.Malformed())
	assert.False(t, Batch{ID: "x", ReceptionDate: time.Now()}.Malformed())
	assert.ErrorIs(t, Batch{ID: "x", Quantity: -5}.Validate(), ErrNegativeQuantity)
	assert.NoError(t, Batch{ID: "x"}.Validate())
}

func TestBatchJSON(t *testing.T) {
	b := Batch{ID: "L1", ProductCode: "JBLANCO", Class: ClassBlanco, Fits: FitNo}
	data, err := json.Marshal(b)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "blanco", m["product_class"])
	assert.Equal(t, "no", m["fits"])
	assert.NotContains(t, m, "entry_date")

	var back Batch
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ClassBlanco, back.Class)
	assert.Equal(t, FitNo, back.Fits)
}

func TestParseFit(t *testing.T) {
	assert.Equal(t, FitYes, ParseFit(" YES "))
	assert.Equal(t, FitNo, ParseFit("no"))
	assert.Equal(t, FitUnknown, ParseFit(""))
}
