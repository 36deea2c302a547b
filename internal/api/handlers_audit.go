package api

import (
	"net/http"
	"strconv"

	"github.com/org/svnportal/internal/audit"
)

// AuditLogHandler handles GET /v1/audit
func (s *Server) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Actor:  q.Get("actor"),
		Action: q.Get("action"),
		Limit:  100,
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			filter.Offset = n
		}
	}

	entries := audit.Query(snap, filter)
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}
