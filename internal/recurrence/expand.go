// Package recurrence turns a recurring draft (start date, frequency, until
// date) into the concrete dates its instances fall on.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "journeycal/internal/log"
	"journeycal/internal/model"
)

const defaultMaxOccurrences = 5000

// InvalidRangeError is returned when the until date precedes the start date.
// Callers must refuse to create any task from such a descriptor.
type InvalidRangeError struct {
	Start time.Time
	Until time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("recurrence: until %s is before start %s",
		e.Until.Format(model.DateLayout), e.Start.Format(model.DateLayout))
}

// Expander expands recurrence descriptors. The zero value is ready to use.
type Expander struct {
	// MaxOccurrences is a safety cap on the number of dates produced. If
	// zero, defaultMaxOccurrences is used.
	MaxOccurrences int
}

// Expand is Expander{}.Expand.
func Expand(start time.Time, freq model.Frequency, until time.Time) ([]time.Time, error) {
	return Expander{}.Expand(start, freq, until)
}

// Expand returns every date from start stepping by freq up to and including
// until. Only the calendar date of start and until is used; results are UTC
// midnights.
//
// Monthly steps stay anchored on start's day of month and land on the last
// day of months that are too short, so Jan 31 yields Feb 29 (or 28), Mar 31,
// Apr 30 and so on.
func (e Expander) Expand(start time.Time, freq model.Frequency, until time.Time) ([]time.Time, error) {
	start = dateOnly(start)
	until = dateOnly(until)
	if until.Before(start) {
		return nil, &InvalidRangeError{Start: start, Until: until}
	}

	opt := rrule.ROption{
		Dtstart: start,
		Until:   until,
	}
	switch freq {
	case model.Daily:
		opt.Freq = rrule.DAILY
	case model.Weekly:
		opt.Freq = rrule.WEEKLY
	case model.Monthly:
		opt.Freq = rrule.MONTHLY
		if day := start.Day(); day > 28 {
			// Prefer the anchor day, fall back to the month's last day.
			opt.Bymonthday = []int{day, -1}
			opt.Bysetpos = []int{1}
		}
	default:
		return nil, fmt.Errorf("recurrence: unsupported frequency %q", freq)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rule: %w", err)
	}

	limit := e.MaxOccurrences
	if limit <= 0 {
		limit = defaultMaxOccurrences
	}

	out := make([]time.Time, 0)
	next := r.Iterator()
	for {
		t, ok := next()
		if !ok {
			break
		}
		if len(out) == limit {
			appLog.Error("recurrence: truncated expansion due to cap",
				errors.New("max occurrences reached"),
				"start", start.Format(model.DateLayout),
				"frequency", string(freq),
				"cap", limit,
			)
			break
		}
		out = append(out, t)
	}

	return out, nil
}

// ExpandDates is Expand over YYYY-MM-DD strings.
func ExpandDates(startDate string, freq model.Frequency, untilDate string) ([]string, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	until, err := ParseDate(untilDate)
	if err != nil {
		return nil, err
	}
	dates, err := Expand(start, freq, until)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(model.DateLayout)
	}
	return out, nil
}

// ParseDate parses a YYYY-MM-DD date as a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// AddMonths moves t by n calendar months, clamping the day to the end of
// the target month instead of rolling into the next one.
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ParseFrequency derives a Frequency from an RRULE value by substring match.
// Unknown rules are treated as weekly.
func ParseFrequency(rule string) model.Frequency {
	upper := strings.ToUpper(rule)
	switch {
	case strings.Contains(upper, "FREQ=DAILY"):
		return model.Daily
	case strings.Contains(upper, "FREQ=WEEKLY"):
		return model.Weekly
	case strings.Contains(upper, "FREQ=MONTHLY"):
		return model.Monthly
	}
	return model.Weekly
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
