package web

import "net/http"

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Store.GetPreferences(r.Context())
	if err != nil {
		fail(w, "failed to load preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"preferences_text"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.deps.Store.SavePreferences(r.Context(), body.Text)
	if err != nil {
		fail(w, "failed to save preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePreferences(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeletePreferences(r.Context()); err != nil {
		fail(w, "failed to delete preferences", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
