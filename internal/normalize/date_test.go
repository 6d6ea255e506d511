package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trialwatch/internal/model"
)

func TestParsePartialDate_YearOnly(t *testing.T) {
	d := ParsePartialDate("2024")
	assert.Equal(t, model.PrecisionYear, d.Precision)
	assert.Equal(t, "2024", d.Raw)
	require.NotNil(t, d.Value)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *d.Value)
}

func TestParsePartialDate_YearMonth(t *testing.T) {
	d := ParsePartialDate("2024-09")
	assert.Equal(t, model.PrecisionMonth, d.Precision)
	require.NotNil(t, d.Value)
	assert.Equal(t, time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC), *d.Value)
}

func TestParsePartialDate_FullDate(t *testing.T) {
	d := ParsePartialDate("2024-09-03")
	assert.Equal(t, model.PrecisionDay, d.Precision)
	require.NotNil(t, d.Value)
	assert.Equal(t, time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC), *d.Value)
	assert.Equal(t, "2024-09-03", d.ISO())
}

func TestParsePartialDate_AbsentAndEmpty(t *testing.T) {
	for _, raw := range []any{nil, "", "   "} {
		d := ParsePartialDate(raw)
		assert.Equal(t, model.PrecisionNone, d.Precision)
		assert.Nil(t, d.Value)
		assert.Empty(t, d.Raw)
	}
}

func TestParsePartialDate_StructWrapper(t *testing.T) {
	d := ParsePartialDate(map[string]any{"date": "2025-01", "type": "ESTIMATED"})
	assert.Equal(t, model.PrecisionMonth, d.Precision)
	assert.Equal(t, "2025-01", d.Raw)
}

func TestParsePartialDate_GarbageKeepsRaw(t *testing.T) {
	for _, raw := range []string{"soon", "2024-xx", "2024-13-01", "2023-02-30"} {
		d := ParsePartialDate(raw)
		assert.Equal(t, model.PrecisionNone, d.Precision, "raw=%s", raw)
		assert.Nil(t, d.Value, "raw=%s", raw)
		assert.Equal(t, raw, d.Raw, "raw string preserved for display")
	}
}

func TestParsePartialDate_PaddedInputKeepsRawVerbatim(t *testing.T) {
	d := ParsePartialDate(" 2024 ")
	assert.Equal(t, model.PrecisionYear, d.Precision)
	assert.Equal(t, " 2024 ", d.Raw, "surrounding whitespace survives in Raw")
	require.NotNil(t, d.Value)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *d.Value)

	d = ParsePartialDate("\t2024-09-03\n")
	assert.Equal(t, model.PrecisionDay, d.Precision)
	assert.Equal(t, "\t2024-09-03\n", d.Raw)
}

func TestParsePartialDate_ExtraSegmentsUseFirstThree(t *testing.T) {
	d := ParsePartialDate("2024-09-03-extra")
	// Third segment parses, trailing garbage segments are ignored.
	assert.Equal(t, model.PrecisionDay, d.Precision)
	require.NotNil(t, d.Value)
	assert.Equal(t, "2024-09-03", d.Value.Format("2006-01-02"))
}
