// Package timeline maps wall-clock times onto the 24-hour road shown on the
// dashboard and lays out a day's tasks along it.
package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ClockTime is a time of day with minute precision and no zone.
type ClockTime struct {
	Hour   int
	Minute int
}

var errBadClock = errors.New("clock time must be HH:MM")

// ParseClock parses "HH:MM" (24-hour). A trailing ":SS" as stored by the
// database is accepted and dropped.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return ClockTime{}, fmt.Errorf("%w: %q", errBadClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("%w: %q", errBadClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return ClockTime{}, fmt.Errorf("%w: %q", errBadClock, s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// ClockOf returns the wall-clock time of t in t's location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

// FromMinutes builds a ClockTime from minutes since midnight, wrapping
// around the day in both directions.
func FromMinutes(m int) ClockTime {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return ClockTime{Hour: m / 60, Minute: m % 60}
}

// Minutes is the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Compare returns -1, 0 or +1 ordering by minutes since midnight.
func (c ClockTime) Compare(o ClockTime) int {
	a, b := c.Minutes(), o.Minutes()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Add shifts c by d minutes, wrapping at midnight.
func (c ClockTime) Add(minutes int) ClockTime {
	return FromMinutes(c.Minutes() + minutes)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
