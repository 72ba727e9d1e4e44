package model

import "time"

// DateLayout is the wire format for calendar dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// TaskType classifies a stored task. Imported drafts only ever produce
// TypeEvent or TypeTask; the rest come from goal planning.
type TaskType string

const (
	TypeEvent    TaskType = "event"
	TypeTask     TaskType = "task"
	TypeGoal     TaskType = "goal"
	TypeSleep    TaskType = "sleep"
	TypeEat      TaskType = "eat"
	TypeSelfCare TaskType = "selfcare"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TypeEvent, TypeTask, TypeGoal, TypeSleep, TypeEat, TypeSelfCare:
		return true
	}
	return false
}

// Goal groups tasks under a user-defined objective.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Task is a single dated entry on the road. Date is YYYY-MM-DD, StartTime
// and EndTime are HH:MM.
type Task struct {
	ID        string    `json:"id"`
	GoalID    *string   `json:"goal_id,omitempty"`
	Title     string    `json:"title"`
	Type      TaskType  `json:"type"`
	Date      *string   `json:"date,omitempty"`
	StartTime *string   `json:"start_time,omitempty"`
	EndTime   *string   `json:"end_time,omitempty"`
	Completed bool      `json:"completed"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Time is the task's start as HH:MM, "00:00" when unscheduled.
func (t Task) Time() string {
	if t.StartTime == nil || *t.StartTime == "" {
		return "00:00"
	}
	return *t.StartTime
}

// GoalWithTasks is a goal together with all tasks referencing it.
type GoalWithTasks struct {
	Goal
	Tasks []Task `json:"tasks"`
}

// Preferences is the free-text scheduling preference note of the user.
type Preferences struct {
	ID        string    `json:"id"`
	Text      string    `json:"preferences_text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
