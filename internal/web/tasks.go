package web

import (
	"net/http"
	"time"

	"journeycal/internal/model"
)

// handleListTasks returns one day's tasks ordered by start time.
//
// GET /api/tasks?date=YYYY-MM-DD (default today)
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var body taskBody
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.addTask(w, r, body)
}

func (s *Server) addTask(w http.ResponseWriter, r *http.Request, body taskBody) {
	t, err := s.deps.Store.AddTask(r.Context(), body.newTask())
	if err != nil {
		fail(w, "failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleUpdateTask toggles completion and/or replaces notes.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Completed *bool   `json:"completed"`
		Notes     *string `json:"notes"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Completed == nil && body.Notes == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	if body.Completed != nil {
		if err := s.deps.Store.ToggleTask(ctx, id, *body.Completed); err != nil {
			fail(w, "failed to update task", err)
			return
		}
	}
	if body.Notes != nil {
		if err := s.deps.Store.UpdateTaskNotes(ctx, id, *body.Notes); err != nil {
			fail(w, "failed to update task", err)
			return
		}
	}

	t, err := s.deps.Store.GetTask(ctx, id)
	if err != nil {
		fail(w, "failed to load task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		fail(w, "failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
