// Package extract turns free text such as "dentist next Monday at 10:30am"
// into drafts, using an LLM when available and a pattern-based fallback
// when it is not.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "journeycal/internal/log"
	"journeycal/internal/model"
	"journeycal/internal/timeline"
)

const (
	defaultConfidence  = 0.8
	fallbackConfidence = 0.6
)

// GoalRef is a goal the model may attach events to.
type GoalRef struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ExistingTask is an already scheduled task used for conflict avoidance.
type ExistingTask struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
	Title     string `json:"title"`
}

// Context is what the extractor knows about the user's day.
type Context struct {
	Goals         []GoalRef
	CurrentDate   string
	Timezone      string
	ExistingTasks []ExistingTask
}

// Result is the outcome of one extraction. Errors are user-facing messages.
type Result struct {
	Drafts []model.Draft `json:"drafts"`
	Errors []string      `json:"errors"`
}

// Extractor produces drafts from natural language.
type Extractor struct {
	llm   Client
	newID func() string
}

// NewExtractor returns an Extractor. A nil llm always uses the fallback.
func NewExtractor(llm Client) *Extractor {
	return &Extractor{llm: llm, newID: uuid.NewString}
}

const noEventsMessage = "I couldn't identify any specific events in your input. Try being more specific about dates and times. Examples: 'Meeting with John tomorrow at 2pm' or 'Doctor appointment next Monday at 10:30am'"

// Extract never fails: problems are reported in Result.Errors.
func (e *Extractor) Extract(ctx context.Context, input string, c Context) Result {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{Drafts: []model.Draft{}, Errors: []string{noEventsMessage}}
	}

	var llmErr error
	if e.llm == nil {
		llmErr = ErrMissingAPIKey
	} else {
		text, err := e.llm.Generate(ctx, buildPrompt(input, c))
		if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrInvalidAPIKey) {
			return Result{Drafts: []model.Draft{}, Errors: []string{err.Error()}}
		}
		if err == nil {
			res, perr := e.decode(text, c)
			if perr == nil {
				return res
			}
			err = perr
		}
		llmErr = err
	}

	appLog.Error("ai parsing failed, trying fallback", llmErr)
	if d, ok := e.fallback(input, c); ok {
		return Result{
			Drafts: []model.Draft{d},
			Errors: []string{"AI parsing failed, but I found a potential event using fallback parsing. Please review carefully."},
		}
	}
	return Result{Drafts: []model.Draft{}, Errors: []string{"AI parsing failed: " + llmErr.Error()}}
}

type llmEvent struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	GoalID     string  `json:"goalId"`
	GoalTitle  string  `json:"goalTitle"`
	Date       string  `json:"date"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type llmResponse struct {
	Events []llmEvent `json:"events"`
	Errors []string   `json:"errors"`
}

// decode extracts the outermost JSON object from model text.
func (e *Extractor) decode(text string, c Context) (Result, error) {
	first, last := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if first < 0 || last < first {
		return Result{}, errors.New("Could not parse JSON from AI response")
	}
	var lr llmResponse
	if err := json.Unmarshal([]byte(text[first:last+1]), &lr); err != nil {
		return Result{}, fmt.Errorf("Could not parse JSON from AI response: %w", err)
	}
	if lr.Events == nil {
		return Result{}, errors.New("Invalid response structure from AI")
	}

	res := Result{Drafts: make([]model.Draft, 0, len(lr.Events)), Errors: lr.Errors}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if len(lr.Events) == 0 {
		res.Errors = append(res.Errors, noEventsMessage)
		return res, nil
	}

	known := make(map[string]bool, len(c.Goals))
	for _, g := range c.Goals {
		known[g.ID] = true
	}

	for i, ev := range lr.Events {
		start, err := timeline.ParseClock(ev.StartTime)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Event %d (%s): %v", i+1, ev.Title, err))
			continue
		}
		if _, err := time.Parse(model.DateLayout, ev.Date); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Event %d (%s): invalid date %q", i+1, ev.Title, ev.Date))
			continue
		}
		end, err := timeline.ParseClock(ev.EndTime)
		if err != nil {
			end = start.Add(60)
		}

		d := model.Draft{
			ID:         ev.ID,
			Source:     model.SourceText,
			Title:      strings.TrimSpace(ev.Title),
			StartDate:  ev.Date,
			EndDate:    ev.Date,
			StartTime:  start.String(),
			EndTime:    end.String(),
			Type:       model.TypeTask,
			Confidence: ev.Confidence,
			Reasoning:  ev.Reasoning,
			GoalTitle:  ev.GoalTitle,
		}
		// IDs from the model are not trusted to be unique.
		d.ID = e.newID()
		if ev.Type == string(model.TypeEvent) {
			d.Type = model.TypeEvent
		}
		if d.Confidence <= 0 || d.Confidence > 1 {
			d.Confidence = defaultConfidence
		}
		if d.Reasoning == "" {
			d.Reasoning = "AI-generated event"
		}
		if known[ev.GoalID] {
			d.GoalID = ev.GoalID
		} else if d.GoalTitle == "" {
			d.GoalTitle = ev.GoalID
		}
		if d.Title == "" {
			d.Title = "Task"
		}
		res.Drafts = append(res.Drafts, d)
	}
	return res, nil
}

var (
	timePatterns = []struct {
		re       *regexp.Regexp
		meridiem bool
	}{
		{regexp.MustCompile(`(?i)(\d{1,2}):?(\d{2})?\s*(am|pm)`), true},
		{regexp.MustCompile(`(?i)(\d{1,2})\s*(am|pm)`), true},
		{regexp.MustCompile(`(\d{1,2}):(\d{2})`), false},
	}
	nextWeekdayRe = regexp.MustCompile(`(?i)next\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)
	fillerRe      = regexp.MustCompile(`(?i)\b(tomorrow|today|next\s+\w+|more|for|before|this\s+week)\b`)
	trailingAtRe  = regexp.MustCompile(`(?i)\s*\bat\s*$`)

	taskKeywords = []string{
		"study", "learn", "practice", "exercise", "workout", "gym", "run", "walk",
		"read", "write", "call", "email", "clean", "organize", "plan", "prepare",
		"review", "quiz", "test", "exam", "homework", "project", "assignment",
	}
)

// fallback recognizes a time, a relative day and task-like wording.
func (e *Extractor) fallback(input string, c Context) (model.Draft, bool) {
	clock, span, hasTime := findTime(input)
	date, hasDate := findDate(input, c.CurrentDate)
	taskLike := isTaskLike(input)
	if !hasTime && !hasDate && !taskLike {
		return model.Draft{}, false
	}

	title := input
	if hasTime {
		title = trailingAtRe.ReplaceAllString(input[:span[0]], "") + " " + input[span[1]:]
	}
	title = strings.Join(strings.Fields(fillerRe.ReplaceAllString(title, "")), " ")
	if title == "" {
		title = "Task"
	}

	if !hasTime {
		clock = suggestTime(input)
	}
	if !hasDate {
		date = c.CurrentDate
	}

	typ := model.TypeEvent
	if taskLike {
		typ = model.TypeTask
	}
	return model.Draft{
		ID:         e.newID(),
		Source:     model.SourceText,
		Title:      title,
		StartDate:  date,
		EndDate:    date,
		StartTime:  clock.String(),
		EndTime:    clock.Add(60).String(),
		Type:       typ,
		Confidence: fallbackConfidence,
		Reasoning:  "Fallback parsing with smart time suggestion - please review carefully",
		GoalTitle:  "General",
	}, true
}

// findTime returns the first time mentioned and its byte span in s.
func findTime(s string) (timeline.ClockTime, [2]int, bool) {
	for _, p := range timePatterns {
		m := p.re.FindStringSubmatchIndex(s)
		if m == nil {
			continue
		}
		group := func(i int) string {
			if m[2*i] < 0 {
				return ""
			}
			return s[m[2*i]:m[2*i+1]]
		}
		hour, _ := strconv.Atoi(group(1))
		minute := 0
		meridiem := ""
		if p.meridiem {
			// the two 12h patterns differ in whether a minutes group exists
			if len(m) == 8 {
				if g := group(2); g != "" {
					minute, _ = strconv.Atoi(g)
				}
				meridiem = strings.ToLower(group(3))
			} else {
				meridiem = strings.ToLower(group(2))
			}
		} else {
			minute, _ = strconv.Atoi(group(2))
		}
		switch {
		case meridiem == "pm" && hour != 12:
			hour += 12
		case meridiem == "am" && hour == 12:
			hour = 0
		}
		if hour > 23 || minute > 59 {
			continue
		}
		return timeline.ClockTime{Hour: hour, Minute: minute}, [2]int{m[0], m[1]}, true
	}
	return timeline.ClockTime{}, [2]int{}, false
}

func findDate(s, current string) (string, bool) {
	today, err := time.Parse(model.DateLayout, current)
	if err != nil {
		return "", false
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1).Format(model.DateLayout), true
	case strings.Contains(lower, "today"):
		return current, true
	}
	if m := nextWeekdayRe.FindStringSubmatch(s); m != nil {
		target := weekdays[strings.ToLower(m[1])]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format(model.DateLayout), true
	}
	return "", false
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

func isTaskLike(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range taskKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// suggestTime picks a plausible slot from the kind of activity.
func suggestTime(input string) timeline.ClockTime {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, "before tomorrow", "today"):
		return timeline.ClockTime{Hour: 19}
	case containsAny(lower, "study", "learn", "quiz", "exam"):
		return timeline.ClockTime{Hour: 14}
	case containsAny(lower, "exercise", "workout", "gym", "run"):
		return timeline.ClockTime{Hour: 18}
	case containsAny(lower, "meeting", "work", "call"):
		return timeline.ClockTime{Hour: 9}
	case containsAny(lower, "clean", "organize", "plan"):
		return timeline.ClockTime{Hour: 10}
	}
	return timeline.ClockTime{Hour: 15}
}
