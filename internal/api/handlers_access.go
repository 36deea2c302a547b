package api

import (
	"net/http"

	"github.com/org/svnportal/pkg/models"
)

// AccessCheckHandler handles GET /v1/access?user=&repo=&path=
// The user parameter defaults to the caller's own account; checking another
// user's access requires the admin capability.
func (s *Server) AccessCheckHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	repoID := q.Get("repo")
	path := q.Get("path")
	if repoID == "" {
		writeError(w, http.StatusBadRequest, "repo parameter is required")
		return
	}
	if path == "" {
		path = "/"
	}

	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	caller := snap.UserByID(userIDFromCtx(r.Context()))
	if caller == nil {
		writeError(w, http.StatusForbidden, "unknown caller")
		return
	}
	subjectID := caller.ID
	if requested := q.Get("user"); requested != "" && requested != caller.ID {
		if !caller.HasCapability(models.CapAdminAccess) {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}
		subjectID = requested
	}

	decision := s.resolver.Resolve(snap, subjectID, repoID, path)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": subjectID,
		"repo_id": repoID,
		"path":    path,
		"level":   decision.Level.String(),
		"reason":  decision.Reason,
		"matched": decision.Matched,
	})
}
