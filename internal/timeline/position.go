package timeline

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// TimeToPosition maps c onto [0, 100]. 00:00 is 0 and 23:59 is just under
// 100 since the day is divided into 1440 minute slots.
func TimeToPosition(c ClockTime) float64 {
	p := float64(c.Minutes()) / minutesPerDay * 100
	return math.Min(100, math.Max(0, p))
}

// PositionToTime is the inverse of TimeToPosition rounded to the nearest
// minute. It is exact only for positions derived from whole minutes.
func PositionToTime(position float64) ClockTime {
	minutes := int(math.Round(position / 100 * minutesPerDay))
	return ClockTime{Hour: (minutes / 60) % 24, Minute: minutes % 60}
}

// CurrentPosition is the position of now's wall-clock time. Callers capture
// now once per render and pass the same value everywhere.
func CurrentPosition(now time.Time) float64 {
	return TimeToPosition(ClockOf(now))
}

// ScrollOffset is the horizontal offset that centers position inside a
// container of the given width.
func ScrollOffset(position, containerWidth float64) float64 {
	return containerWidth/2 - position/100*containerWidth
}

type ScaleMarker struct {
	Time     ClockTime `json:"time"`
	Position float64   `json:"position"`
	Label    string    `json:"label"`
}

type HourMarker struct {
	Time     ClockTime `json:"time"`
	Position float64   `json:"position"`
	IsMajor  bool      `json:"is_major"`
}

// TimeScaleMarkers returns one labelled marker every two hours, 12 in total.
func TimeScaleMarkers() []ScaleMarker {
	out := make([]ScaleMarker, 0, 12)
	for hour := 0; hour < 24; hour += 2 {
		c := ClockTime{Hour: hour}
		out = append(out, ScaleMarker{Time: c, Position: TimeToPosition(c), Label: meridiemLabel(hour)})
	}
	return out
}

// HourMarkers returns a marker per hour; even hours are major.
func HourMarkers() []HourMarker {
	out := make([]HourMarker, 0, 24)
	for hour := 0; hour < 24; hour++ {
		c := ClockTime{Hour: hour}
		out = append(out, HourMarker{Time: c, Position: TimeToPosition(c), IsMajor: hour%2 == 0})
	}
	return out
}

func meridiemLabel(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	case hour == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}

// sortByClock returns a copy of items stably ordered by clock; equal times
// keep their input order.
func sortByClock[T any](items []T, clock func(T) ClockTime) []T {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return clock(a).Compare(clock(b))
	})
	return sorted
}

// NextUpcoming returns the earliest item starting strictly after now.
func NextUpcoming[T any](items []T, clock func(T) ClockTime, now ClockTime) (T, bool) {
	for _, it := range sortByClock(items, clock) {
		if clock(it).Compare(now) > 0 {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Current returns the most recently started item: the last one, in clock
// order, starting at or before now.
func Current[T any](items []T, clock func(T) ClockTime, now ClockTime) (T, bool) {
	sorted := sortByClock(items, clock)
	for i := len(sorted) - 1; i >= 0; i-- {
		if clock(sorted[i]).Compare(now) <= 0 {
			return sorted[i], true
		}
	}
	var zero T
	return zero, false
}
