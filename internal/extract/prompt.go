package extract

import (
	"fmt"
	"strings"
	"time"

	"journeycal/internal/model"
)

// buildPrompt renders the instruction sent to the model. The reply is
// expected to hold a single JSON object matching llmResponse.
func buildPrompt(input string, c Context) string {
	var b strings.Builder

	weekday := ""
	if t, err := time.Parse(model.DateLayout, c.CurrentDate); err == nil {
		weekday = " (" + t.Weekday().String() + ")"
	}
	tz := c.Timezone
	if tz == "" {
		tz = "Local"
	}

	b.WriteString("You are a scheduling assistant. Extract calendar events and tasks from the user's text.\n\n")
	fmt.Fprintf(&b, "Current date: %s%s\nTimezone: %s\n\n", c.CurrentDate, weekday, tz)

	b.WriteString("Available goals:\n")
	if len(c.Goals) == 0 {
		b.WriteString("- none\n")
	}
	for _, g := range c.Goals {
		fmt.Fprintf(&b, "- ID: %s, Title: %s", g.ID, g.Title)
		if g.Description != "" {
			fmt.Fprintf(&b, ", Description: %s", g.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nAlready scheduled (avoid conflicts):\n")
	if len(c.ExistingTasks) == 0 {
		b.WriteString("- nothing\n")
	}
	for _, t := range c.ExistingTasks {
		end := t.EndTime
		if end == "" {
			end = "?"
		}
		fmt.Fprintf(&b, "- %s %s-%s %s\n", t.Date, t.StartTime, end, t.Title)
	}

	b.WriteString(`
Rules:
- Resolve relative dates ("tomorrow", "next Monday") against the current date.
- Use 24-hour HH:MM times. If no end time is given, end one hour after the start.
- If no time is given pick a sensible one: study 14:00, exercise 18:00, meetings 09:00, chores 10:00, otherwise 15:00.
- type is "event" for fixed appointments and "task" for things to get done.
- goalId must be one of the goal IDs above; otherwise leave it empty and suggest a goalTitle.
- confidence is between 0 and 1.

Respond with only this JSON:
{"events":[{"id":"","title":"","goalId":"","goalTitle":"","date":"YYYY-MM-DD","startTime":"HH:MM","endTime":"HH:MM","type":"task","confidence":0.8,"reasoning":""}],"errors":[]}

User text:
`)
	b.WriteString(input)
	b.WriteString("\n")
	return b.String()
}
