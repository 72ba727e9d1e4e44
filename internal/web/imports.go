package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"journeycal/internal/extract"
	"journeycal/internal/ics"
	appLog "journeycal/internal/log"
	"journeycal/internal/model"
	"journeycal/internal/planner"
	"journeycal/internal/subscribe"
)

type importResponse struct {
	Drafts []model.Draft `json:"drafts"`
	Errors []string      `json:"errors"`
}

// handleImportICS parses an uploaded calendar file and proposes its entries.
//
// POST /api/import/ics, multipart form field "file".
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ics.MaxFileSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File size must be less than 5MB")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	v := ics.ValidateFile(ics.FileInfo{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	})
	if !v.IsValid {
		writeError(w, http.StatusBadRequest, v.Error)
		return
	}

	body, err := io.ReadAll(io.LimitReader(file, ics.MaxFileSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	res, err := ics.Parse(body, ics.ParseOptions{
		Location:         s.deps.Location,
		Source:           model.SourceFile,
		RecurrenceMonths: s.cfg.RecurrenceDefaultMonths,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.propose(w, res.Drafts, res.Errors)
}

// handleImportText extracts drafts from a sentence such as "Gym tomorrow at 6pm".
func (s *Server) handleImportText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx := r.Context()
	today := s.today()
	ec := extract.Context{CurrentDate: today, Timezone: s.deps.Location.String()}

	goals, err := s.deps.Store.ListGoals(ctx)
	if err != nil {
		fail(w, "failed to load goals", err)
		return
	}
	for _, g := range goals {
		ref := extract.GoalRef{ID: g.ID, Title: g.Title}
		if g.Description != nil {
			ref.Description = *g.Description
		}
		ec.Goals = append(ec.Goals, ref)
	}

	tasks, err := s.deps.Store.ListTasksForDate(ctx, today)
	if err != nil {
		fail(w, "failed to load tasks", err)
		return
	}
	for _, t := range tasks {
		et := extract.ExistingTask{Date: today, StartTime: t.Time(), Title: t.Title}
		if t.EndTime != nil {
			et.EndTime = *t.EndTime
		}
		ec.ExistingTasks = append(ec.ExistingTasks, et)
	}

	res := s.deps.Extractor.Extract(ctx, body.Text, ec)
	s.propose(w, res.Drafts, res.Errors)
}

func (s *Server) propose(w http.ResponseWriter, drafts []model.Draft, msgs []string) {
	added := s.deps.Planner.Inbox().Propose(drafts...)
	if msgs == nil {
		msgs = []string{}
	}
	appLog.Info("drafts proposed", "parsed", len(drafts), "added", len(added), "errors", len(msgs))
	writeJSON(w, http.StatusOK, importResponse{Drafts: added, Errors: msgs})
}

// handleRefresh runs a subscription refresh immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Refresher == nil {
		writeError(w, http.StatusNotFound, "no subscriptions configured")
		return
	}
	stats, err := s.deps.Refresher.RunOnce(r.Context())
	resp := struct {
		Stats subscribe.Stats `json:"stats"`
		Error string          `json:"error,omitempty"`
	}{Stats: stats}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDrafts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Planner.Inbox().Pending())
}

type acceptResponse struct {
	planner.AcceptResult
	// Error lists dates that failed while others were written.
	Error string `json:"error,omitempty"`
}

// handleAcceptDraft writes a draft as tasks. The optional body is a
// planner.AcceptRequest carrying edits and the goal choice.
func (s *Server) handleAcceptDraft(w http.ResponseWriter, r *http.Request) {
	var req planner.AcceptRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Planner.Accept(r.Context(), r.PathValue("id"), req)
	if err != nil && len(res.Tasks) == 0 {
		fail(w, "failed to accept draft", err)
		return
	}
	resp := acceptResponse{AcceptResult: res}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRejectDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Planner.Reject(r.PathValue("id")); err != nil {
		fail(w, "failed to reject draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
