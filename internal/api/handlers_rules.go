package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/org/svnportal/internal/rules"
	"github.com/org/svnportal/pkg/models"
)

// RuleListHandler handles GET /v1/rules?repo= or ?subject_type=&subject=
func (s *Server) RuleListHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := r.URL.Query()
	var out []models.PermissionRule
	switch {
	case q.Get("repo") != "":
		out = rules.ForRepository(snap, q.Get("repo"))
	case q.Get("subject") != "":
		out = rules.ForSubject(snap, models.SubjectType(q.Get("subject_type")), q.Get("subject"))
	default:
		out = snap.Rules
	}
	if out == nil {
		out = []models.PermissionRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": out})
}

// RuleCreateHandler handles POST /v1/rules
func (s *Server) RuleCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepositoryID string `json:"repository_id"`
		Path         string `json:"path"`
		SubjectType  string `json:"subject_type"`
		SubjectID    string `json:"subject_id"`
		Access       string `json:"access"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	level, err := models.ParseAccessLevel(req.Access)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := s.rules.AddRule(r.Context(), userIDFromCtx(r.Context()), req.RepositoryID, req.Path,
		models.SubjectType(req.SubjectType), req.SubjectID, level)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshInventory(r)
	writeJSON(w, http.StatusCreated, rule)
}

// RuleDeleteHandler handles DELETE /v1/rules/{id}
func (s *Server) RuleDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.rules.DeleteRule(r.Context(), userIDFromCtx(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshInventory(r)
	w.WriteHeader(http.StatusNoContent)
}

// refreshInventory updates snapshot gauges after a successful mutation.
func (s *Server) refreshInventory(r *http.Request) {
	if snap, err := s.store.ReadSnapshot(r.Context()); err == nil {
		updateInventory(snap)
	}
}
