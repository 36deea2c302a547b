package api

import (
	"errors"
	"net/http"

	"github.com/org/svnportal/internal/auth"
)

// LoginHandler handles POST /v1/auth/login
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	token, err := s.sessions.Login(snap, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user := snap.UserByUsername(req.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"user_id": user.ID,
	})
}

// LogoutHandler handles POST /v1/auth/logout
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(r.Header.Get("X-Portal-Token"))
	w.WriteHeader(http.StatusNoContent)
}
