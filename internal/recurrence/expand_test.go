package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeycal/internal/model"
)

func TestExpandDates(t *testing.T) {
	tests := []struct {
		name  string
		start string
		freq  model.Frequency
		until string
		want  []string
	}{
		{"daily", "2024-01-01", model.Daily, "2024-01-03",
			[]string{"2024-01-01", "2024-01-02", "2024-01-03"}},
		{"weekly", "2024-01-01", model.Weekly, "2024-01-22",
			[]string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"}},
		{"weekly until between steps", "2024-01-01", model.Weekly, "2024-01-20",
			[]string{"2024-01-01", "2024-01-08", "2024-01-15"}},
		{"same day", "2024-06-10", model.Monthly, "2024-06-10",
			[]string{"2024-06-10"}},
		{"monthly", "2024-01-15", model.Monthly, "2024-04-15",
			[]string{"2024-01-15", "2024-02-15", "2024-03-15", "2024-04-15"}},
		{"monthly clamps short months", "2024-01-31", model.Monthly, "2024-05-31",
			[]string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31"}},
		{"monthly on the 30th", "2023-01-30", model.Monthly, "2023-03-30",
			[]string{"2023-01-30", "2023-02-28", "2023-03-30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandDates(tt.start, tt.freq, tt.until)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpand_InvalidRange(t *testing.T) {
	_, err := ExpandDates("2024-02-01", model.Daily, "2024-01-01")
	require.Error(t, err)

	var rangeErr *InvalidRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "2024-01-01", rangeErr.Until.Format(model.DateLayout))
	assert.Contains(t, err.Error(), "before start 2024-02-01")
}

func TestExpand_IgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	start := time.Date(2024, 1, 1, 23, 30, 0, 0, loc)
	until := time.Date(2024, 1, 2, 0, 15, 0, 0, loc)

	got, err := Expand(start, model.Daily, until)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got[1])
}

func TestExpand_Cap(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := Expander{MaxOccurrences: 10}.Expand(start, model.Daily, start.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestExpand_UnknownFrequency(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := Expand(start, model.Frequency("yearly"), start)
	assert.Error(t, err)
}

func TestAddMonths(t *testing.T) {
	d := func(s string) time.Time {
		v, err := ParseDate(s)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, d("2024-07-01"), AddMonths(d("2024-01-01"), 6))
	assert.Equal(t, d("2025-02-28"), AddMonths(d("2024-08-31"), 6))
	assert.Equal(t, d("2024-02-29"), AddMonths(d("2024-01-31"), 1))
	assert.Equal(t, d("2023-12-31"), AddMonths(d("2024-03-31"), -3))
}

func TestParseFrequency(t *testing.T) {
	assert.Equal(t, model.Daily, ParseFrequency("FREQ=DAILY;COUNT=5"))
	assert.Equal(t, model.Weekly, ParseFrequency("freq=weekly;byday=MO"))
	assert.Equal(t, model.Monthly, ParseFrequency("FREQ=MONTHLY;BYMONTHDAY=1"))
	assert.Equal(t, model.Weekly, ParseFrequency("FREQ=YEARLY"))
	assert.Equal(t, model.Weekly, ParseFrequency(""))
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2024-13-01")
	assert.Error(t, err)
	got, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, 29, got.Day())
}
