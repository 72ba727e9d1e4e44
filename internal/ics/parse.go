package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "journeycal/internal/log"
	"journeycal/internal/model"
	"journeycal/internal/recurrence"
	"journeycal/internal/timeline"
)

const (
	// calendarConfidence is the fixed trust level for structured input.
	calendarConfidence     = 0.9
	defaultRecurrenceMonth = 6
)

// ParseOptions controls how VEVENTs become drafts.
type ParseOptions struct {
	// Location is the zone in which dates and HH:MM times are rendered.
	// If nil, time.Local is used. Floating times keep their wall clock.
	Location *time.Location

	// Source is copied into every draft. SourceRef, when set, names the
	// feed: each draft's SourceRef becomes "<SourceRef>/<UID>", or
	// "<SourceRef>#<title>" for entries without a UID. Otherwise drafts
	// carry their bare UID.
	Source    model.DraftSource
	SourceRef string

	// RecurrenceMonths is how far a recurring entry without a usable UNTIL
	// extends. If zero, six months.
	RecurrenceMonths int

	// NewID generates draft IDs. If nil, random UUIDs are used.
	NewID func() string
}

// ParseResult holds the drafts that could be built and a message for every
// entry that could not.
type ParseResult struct {
	Drafts []model.Draft `json:"drafts"`
	Errors []string      `json:"errors"`
}

// Parse reads an iCalendar payload into drafts for review. Nothing is
// persisted. A bad VEVENT is reported in ParseResult.Errors and skipped; an
// error is returned only when the payload is not a calendar at all.
func Parse(body []byte, opts ParseOptions) (ParseResult, error) {
	result := ParseResult{Drafts: []model.Draft{}, Errors: []string{}}

	if len(bytes.TrimSpace(body)) == 0 {
		return result, errors.New("empty ICS body")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RecurrenceMonths <= 0 {
		opts.RecurrenceMonths = defaultRecurrenceMonth
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Source == "" {
		opts.Source = model.SourceFile
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "source", opts.Source, "ref", redactURL(opts.SourceRef))
		return result, fmt.Errorf("could not read calendar: %w", err)
	}

	for i, ve := range cal.Events() {
		d, perr := parseVEvent(ve, i, opts)
		if perr != nil {
			appLog.Debug("ics vevent skipped", "index", i, "reason", perr.Error())
			result.Errors = append(result.Errors, perr.Error())
			continue
		}
		result.Drafts = append(result.Drafts, d)
	}

	appLog.Info("ics parse completed",
		"source", opts.Source,
		"draft_count", len(result.Drafts),
		"error_count", len(result.Errors),
	)
	return result, nil
}

// sourceRef scopes uid to feed; UIDs are only unique within one feed.
func sourceRef(feed, uid, title string) string {
	switch {
	case feed == "":
		return uid
	case uid == "":
		return feed + "#" + title
	default:
		return feed + "/" + uid
	}
}

func parseVEvent(ve *ical.VEvent, index int, opts ParseOptions) (model.Draft, error) {
	title := propValue(ve, ical.ComponentPropertySummary)
	if title == "" {
		title = fmt.Sprintf("Event %d", index+1)
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || strings.TrimSpace(startProp.Value) == "" {
		return model.Draft{}, fmt.Errorf("Event %q has no start date", title)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return model.Draft{}, fmt.Errorf("Error parsing event %d: %v", index+1, err)
	}
	start = inZone(startProp, start, opts.Location)

	end := start
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if t, err := ve.GetEndAt(); err == nil {
			end = inZone(endProp, t, opts.Location)
		}
	}

	dur := end.Sub(start)
	isEvent := dur > 0 && dur < 24*time.Hour

	d := model.Draft{
		ID:          opts.NewID(),
		Source:      opts.Source,
		SourceRef:   sourceRef(opts.SourceRef, propValue(ve, ical.ComponentPropertyUniqueId), title),
		Title:       title,
		Description: propValue(ve, ical.ComponentPropertyDescription),
		Location:    propValue(ve, ical.ComponentPropertyLocation),
		StartDate:   start.Format(model.DateLayout),
		EndDate:     end.Format(model.DateLayout),
		StartTime:   timeline.ClockOf(start).String(),
		EndTime:     timeline.ClockOf(end).String(),
		Confidence:  calendarConfidence,
	}

	kind := "Task with deadline"
	d.Type = model.TypeTask
	if isEvent {
		kind = "Scheduled event"
		d.Type = model.TypeEvent
	}

	if rule := propValue(ve, ical.ComponentPropertyRrule); rule != "" {
		d.IsRecurring = true
		d.RecurrenceRule = rule
		d.Frequency = recurrence.ParseFrequency(rule)
		startDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		until, ok := untilDate(rule)
		if !ok {
			until = recurrence.AddMonths(startDate, opts.RecurrenceMonths)
		}
		d.RecurrenceEndDate = until.Format(model.DateLayout)
	}

	d.Reasoning = "Parsed from calendar: " + kind
	if d.IsRecurring {
		d.Reasoning += " (recurring)"
	}
	return d, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// inZone renders t in loc. Floating values (no trailing Z, no TZID) carry no
// zone of their own, so their wall clock is kept as-is.
func inZone(prop *ical.IANAProperty, t time.Time, loc *time.Location) time.Time {
	floating := !strings.HasSuffix(strings.TrimSpace(prop.Value), "Z")
	if params := prop.ICalParameters; params != nil {
		if tz, ok := params["TZID"]; ok && len(tz) > 0 {
			floating = false
		}
	}
	if floating {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
	return t.In(loc)
}

// untilDate extracts the calendar date named by an RRULE's UNTIL part.
func untilDate(rule string) (time.Time, bool) {
	for _, part := range strings.Split(rule, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "UNTIL") {
			continue
		}
		t, err := parseICSTime(v)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms. Only the date
// part of the result is used by callers.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.Parse("20060102T150405", v)
	}
	return time.Parse("20060102", v)
}
