package timeline

import (
	"slices"
	"time"

	"journeycal/internal/model"
)

// Stop is a task placed on the road.
type Stop struct {
	Task     model.Task `json:"task"`
	Position float64    `json:"position"`
	// EndPosition is set when the task has a parseable end time.
	EndPosition *float64 `json:"end_position,omitempty"`
	Passed      bool     `json:"passed"`
	// Unscheduled stops have no usable start time. They follow the
	// scheduled ones and are never Passed, Current or Next.
	Unscheduled bool `json:"unscheduled,omitempty"`
}

// Road is everything the dashboard needs to draw one day.
type Road struct {
	Markers []ScaleMarker `json:"markers"`
	Hours   []HourMarker  `json:"hours"`
	Now     float64       `json:"now"`
	NowTime ClockTime     `json:"now_time"`
	Stops   []Stop        `json:"stops"`
	// Current and Next index into Stops, -1 when absent.
	Current int `json:"current"`
	Next    int `json:"next"`
}

// TaskClock is the start of t; unscheduled or malformed times sit at
// midnight.
func TaskClock(t model.Task) ClockTime {
	c, _ := taskClock(t)
	return c
}

func taskClock(t model.Task) (ClockTime, bool) {
	if t.StartTime == nil || *t.StartTime == "" {
		return ClockTime{}, false
	}
	c, err := ParseClock(*t.StartTime)
	if err != nil {
		return ClockTime{}, false
	}
	return c, true
}

// Layout places tasks on the road for the instant now. Tasks are ordered by
// start time; ties keep the order given, so callers pass tasks already
// sorted by creation time. Tasks without a start time come last.
func Layout(tasks []model.Task, now time.Time) Road {
	nowClock := ClockOf(now)
	sorted := sortByClock(tasks, TaskClock)
	// the store lists tasks without a start time last; keep them there
	slices.SortStableFunc(sorted, func(a, b model.Task) int {
		_, sa := taskClock(a)
		_, sb := taskClock(b)
		switch {
		case sa == sb:
			return 0
		case sa:
			return -1
		default:
			return 1
		}
	})

	road := Road{
		Markers: TimeScaleMarkers(),
		Hours:   HourMarkers(),
		Now:     TimeToPosition(nowClock),
		NowTime: nowClock,
		Stops:   make([]Stop, 0, len(sorted)),
		Current: -1,
		Next:    -1,
	}

	for i, t := range sorted {
		start, scheduled := taskClock(t)
		stop := Stop{
			Task:        t,
			Position:    TimeToPosition(start),
			Passed:      scheduled && start.Compare(nowClock) <= 0,
			Unscheduled: !scheduled,
		}
		if t.EndTime != nil {
			if end, err := ParseClock(*t.EndTime); err == nil {
				p := TimeToPosition(end)
				stop.EndPosition = &p
			}
		}
		switch {
		case stop.Unscheduled:
		case stop.Passed:
			road.Current = i
		case road.Next == -1:
			road.Next = i
		}
		road.Stops = append(road.Stops, stop)
	}

	return road
}
