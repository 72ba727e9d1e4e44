package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeycal/internal/model"
)

func mustClock(t *testing.T, s string) ClockTime {
	t.Helper()
	c, err := ParseClock(s)
	require.NoError(t, err)
	return c
}

func TestParseClock(t *testing.T) {
	c := mustClock(t, "07:05")
	assert.Equal(t, ClockTime{Hour: 7, Minute: 5}, c)
	assert.Equal(t, "18:30", mustClock(t, "18:30:00").String())

	for _, bad := range []string{"", "7", "24:00", "12:60", "ab:cd", "12:5", "1:2:3:4"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestRoundTripEveryMinute(t *testing.T) {
	for m := 0; m < minutesPerDay; m++ {
		c := FromMinutes(m)
		assert.Equal(t, c, PositionToTime(TimeToPosition(c)), "minute %d", m)
	}
}

func TestMonotonic(t *testing.T) {
	prev := TimeToPosition(FromMinutes(0))
	for m := 1; m < minutesPerDay; m++ {
		p := TimeToPosition(FromMinutes(m))
		require.Less(t, prev, p, "minute %d", m)
		prev = p
	}
}

func TestBoundaries(t *testing.T) {
	assert.Equal(t, 0.0, TimeToPosition(mustClock(t, "00:00")))
	last := TimeToPosition(mustClock(t, "23:59"))
	assert.InDelta(t, 1439.0/1440.0*100, last, 1e-9)
	assert.Less(t, last, 100.0)
	assert.Equal(t, "12:00", PositionToTime(50).String())
	assert.Equal(t, "00:00", PositionToTime(100).String())
}

func TestCurrentPosition(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	assert.InDelta(t, 25.0, CurrentPosition(now), 1e-9)
}

func TestScrollOffset(t *testing.T) {
	assert.InDelta(t, 0.0, ScrollOffset(50, 1000), 1e-9)
	assert.InDelta(t, 500.0, ScrollOffset(0, 1000), 1e-9)
}

func TestMarkers(t *testing.T) {
	scale := TimeScaleMarkers()
	require.Len(t, scale, 12)
	labels := make([]string, 0, len(scale))
	for _, m := range scale {
		labels = append(labels, m.Label)
	}
	assert.Equal(t, []string{
		"12 AM", "2 AM", "4 AM", "6 AM", "8 AM", "10 AM",
		"12 PM", "2 PM", "4 PM", "6 PM", "8 PM", "10 PM",
	}, labels)
	assert.Equal(t, "22:00", scale[11].Time.String())

	hours := HourMarkers()
	require.Len(t, hours, 24)
	major := 0
	for _, h := range hours {
		if h.IsMajor {
			major++
			assert.Equal(t, 0, h.Time.Hour%2)
		}
	}
	assert.Equal(t, 12, major)

	// pure: recomputed identically
	assert.Equal(t, scale, TimeScaleMarkers())
}

type timed struct {
	name string
	at   string
}

func timedClock(x timed) ClockTime {
	c, _ := ParseClock(x.at)
	return c
}

func TestNextAndCurrent(t *testing.T) {
	tasks := []timed{{"dinner", "18:00"}, {"breakfast", "08:00"}, {"lunch", "12:00"}}

	now := ClockTime{Hour: 13}
	cur, ok := Current(tasks, timedClock, now)
	require.True(t, ok)
	assert.Equal(t, "lunch", cur.name)
	next, ok := NextUpcoming(tasks, timedClock, now)
	require.True(t, ok)
	assert.Equal(t, "dinner", next.name)

	early := ClockTime{Hour: 7}
	_, ok = Current(tasks, timedClock, early)
	assert.False(t, ok)
	next, ok = NextUpcoming(tasks, timedClock, early)
	require.True(t, ok)
	assert.Equal(t, "breakfast", next.name)

	// input slice is not reordered
	assert.Equal(t, "dinner", tasks[0].name)
}

func TestNextAndCurrent_EmptyAndTies(t *testing.T) {
	_, ok := Current([]timed(nil), timedClock, ClockTime{Hour: 12})
	assert.False(t, ok)
	_, ok = NextUpcoming([]timed{}, timedClock, ClockTime{Hour: 12})
	assert.False(t, ok)

	tied := []timed{{"first", "09:00"}, {"second", "09:00"}}
	cur, _ := Current(tied, timedClock, ClockTime{Hour: 10})
	assert.Equal(t, "second", cur.name)
	next, _ := NextUpcoming(tied, timedClock, ClockTime{Hour: 8})
	assert.Equal(t, "first", next.name)

	// exactly at a task's time it is current, not upcoming
	_, ok = NextUpcoming(tied, timedClock, ClockTime{Hour: 9})
	assert.False(t, ok)
}

func strp(s string) *string { return &s }

func TestLayout(t *testing.T) {
	tasks := []model.Task{
		{ID: "c", Title: "evening run", StartTime: strp("18:00")},
		{ID: "a", Title: "wake up", StartTime: strp("06:00"), EndTime: strp("06:30")},
		{ID: "b", Title: "read", StartTime: strp("12:00:00")},
	}
	now := time.Date(2024, 5, 5, 12, 30, 0, 0, time.UTC)

	road := Layout(tasks, now)
	require.Len(t, road.Stops, 3)
	assert.Equal(t, "a", road.Stops[0].Task.ID)
	assert.Equal(t, "b", road.Stops[1].Task.ID)
	assert.Equal(t, "c", road.Stops[2].Task.ID)
	assert.InDelta(t, 25.0, road.Stops[0].Position, 1e-9)
	require.NotNil(t, road.Stops[0].EndPosition)
	assert.Nil(t, road.Stops[1].EndPosition)
	assert.True(t, road.Stops[1].Passed)
	assert.False(t, road.Stops[2].Passed)
	assert.Equal(t, 1, road.Current)
	assert.Equal(t, 2, road.Next)
	assert.Equal(t, "12:30", road.NowTime.String())
	assert.Len(t, road.Markers, 12)
	assert.Len(t, road.Hours, 24)
}

func TestLayout_Unscheduled(t *testing.T) {
	tasks := []model.Task{
		{ID: "loose", Title: "groceries"},
		{ID: "bad", Title: "typo", StartTime: strp("25:99")},
		{ID: "late", Title: "dinner", StartTime: strp("19:00")},
	}
	now := time.Date(2024, 5, 5, 8, 0, 0, 0, time.UTC)

	road := Layout(tasks, now)
	require.Len(t, road.Stops, 3)
	assert.Equal(t, "late", road.Stops[0].Task.ID)
	assert.False(t, road.Stops[0].Unscheduled)
	for _, s := range road.Stops[1:] {
		assert.True(t, s.Unscheduled, s.Task.ID)
		assert.False(t, s.Passed, s.Task.ID)
	}
	assert.Equal(t, "loose", road.Stops[1].Task.ID)
	assert.Equal(t, -1, road.Current, "unscheduled tasks are never current")
	assert.Equal(t, 0, road.Next)

	road = Layout(tasks[:1], now)
	assert.Equal(t, -1, road.Current)
	assert.Equal(t, -1, road.Next)
}

func TestLayout_Empty(t *testing.T) {
	road := Layout(nil, time.Date(2024, 5, 5, 1, 0, 0, 0, time.UTC))
	assert.Empty(t, road.Stops)
	assert.Equal(t, -1, road.Current)
	assert.Equal(t, -1, road.Next)
}
