package web

import (
	"net/http"
	"time"

	"journeycal/internal/model"
	"journeycal/internal/store"
	"journeycal/internal/timeline"
)

// taskBody is the JSON shape accepted for new tasks.
type taskBody struct {
	Title     string         `json:"title"`
	Type      model.TaskType `json:"type"`
	Date      *string        `json:"date,omitempty"`
	StartTime *string        `json:"start_time,omitempty"`
	EndTime   *string        `json:"end_time,omitempty"`
	Notes     *string        `json:"notes,omitempty"`
	GoalID    *string        `json:"goal_id,omitempty"`
}

func (b taskBody) newTask() store.NewTask {
	typ := b.Type
	if typ == "" {
		typ = model.TypeTask
	}
	return store.NewTask{
		GoalID:    b.GoalID,
		Title:     b.Title,
		Type:      typ,
		Date:      b.Date,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Notes:     b.Notes,
	}
}

type goalBody struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Tasks       []taskBody `json:"tasks,omitempty"`
}

type timelineResponse struct {
	Date string        `json:"date"`
	Road timeline.Road `json:"road"`
}

// handleTimeline lays out one day's tasks on the road.
//
// GET /api/timeline?date=YYYY-MM-DD (default today)
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.today()
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	tasks, err := s.deps.Store.ListTasksForDate(r.Context(), date)
	if err != nil {
		fail(w, "failed to load tasks", err)
		return
	}
	now := s.deps.Now().In(s.deps.Location)
	writeJSON(w, http.StatusOK, timelineResponse{Date: date, Road: timeline.Layout(tasks, now)})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.deps.Store.ListGoalsWithTasks(r.Context())
	if err != nil {
		fail(w, "failed to load goals", err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var body goalBody
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := store.NewGoal{Title: body.Title, Description: body.Description}
	for _, t := range body.Tasks {
		in.Tasks = append(in.Tasks, t.newTask())
	}
	g, err := s.deps.Store.CreateGoal(r.Context(), in)
	if err != nil {
		fail(w, "failed to create goal", err)
		return
	}

	full, err := s.deps.Store.GetGoalWithTasks(r.Context(), g.ID)
	if err != nil {
		fail(w, "failed to load goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, full)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Store.GetGoalWithTasks(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, "failed to load goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Completed *bool `json:"completed"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Completed == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	id := r.PathValue("id")
	if err := s.deps.Store.SetGoalCompleted(r.Context(), id, *body.Completed); err != nil {
		fail(w, "failed to update goal", err)
		return
	}
	g, err := s.deps.Store.GetGoalWithTasks(r.Context(), id)
	if err != nil {
		fail(w, "failed to load goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleDeleteGoal removes a goal and every task attached to it.
func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		fail(w, "failed to delete goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddGoalTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.deps.Store.GetGoalWithTasks(r.Context(), id); err != nil {
		fail(w, "failed to load goal", err)
		return
	}

	var body taskBody
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body.GoalID = &id
	s.addTask(w, r, body)
}
