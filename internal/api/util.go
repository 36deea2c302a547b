package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/org/svnportal/internal/directory"
	"github.com/org/svnportal/internal/groups"
	"github.com/org/svnportal/internal/pathspec"
	"github.com/org/svnportal/internal/rules"
	"github.com/org/svnportal/internal/state"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"errors":[%q]}`, msg)
}

// writeServiceError maps the service error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, pathspec.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, rules.ErrRepositoryNotFound),
		errors.Is(err, rules.ErrSubjectNotFound),
		errors.Is(err, rules.ErrRuleNotFound),
		errors.Is(err, directory.ErrRepositoryNotFound),
		errors.Is(err, directory.ErrUserNotFound),
		errors.Is(err, groups.ErrGroupNotFound),
		errors.Is(err, groups.ErrUserNotFound),
		errors.Is(err, groups.ErrEdgeNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrDuplicateName),
		errors.Is(err, groups.ErrDuplicateEdge),
		errors.Is(err, groups.ErrSelfReference),
		errors.Is(err, groups.ErrWouldCreateCycle),
		errors.Is(err, state.ErrSnapshotConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
