package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/org/svnportal/internal/groups"
	"github.com/org/svnportal/pkg/models"
)

// RepoListHandler handles GET /v1/repos
func (s *Server) RepoListHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repositories": snap.Repositories})
}

// RepoCreateHandler handles POST /v1/repos
func (s *Server) RepoCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string  `json:"name"`
		Location      string  `json:"location"`
		DefaultAccess *string `json:"default_access"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	var override *models.AccessLevel
	if req.DefaultAccess != nil {
		level, err := models.ParseAccessLevel(*req.DefaultAccess)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		override = &level
	}

	repo, err := s.directory.CreateRepository(r.Context(), userIDFromCtx(r.Context()), req.Name, req.Location, override)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshInventory(r)
	writeJSON(w, http.StatusCreated, repo)
}

// RepoArchiveHandler handles POST /v1/repos/{id}/archive
func (s *Server) RepoArchiveHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.directory.ArchiveRepository(r.Context(), userIDFromCtx(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshInventory(r)
	w.WriteHeader(http.StatusNoContent)
}

// RepoDefaultAccessHandler handles POST /v1/repos/{id}/default-access
func (s *Server) RepoDefaultAccessHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		DefaultAccess *string `json:"default_access"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var override *models.AccessLevel
	if req.DefaultAccess != nil {
		level, err := models.ParseAccessLevel(*req.DefaultAccess)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		override = &level
	}
	if err := s.directory.SetRepositoryAccess(r.Context(), userIDFromCtx(r.Context()), id, override); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UserListHandler handles GET /v1/users
func (s *Server) UserListHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Strip password hashes from the listing.
	users := make([]models.User, len(snap.Users))
	for i, u := range snap.Users {
		u.PasswordHash = ""
		users[i] = u
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// UserCreateHandler handles POST /v1/users
func (s *Server) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string   `json:"username"`
		DisplayName  string   `json:"display_name"`
		Password     string   `json:"password"`
		Capabilities []string `json:"capabilities"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	user, err := s.directory.CreateUser(r.Context(), userIDFromCtx(r.Context()), req.Username, req.DisplayName, req.Password, req.Capabilities)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshInventory(r)
	user.PasswordHash = ""
	writeJSON(w, http.StatusCreated, user)
}

// UserDeactivateHandler handles POST /v1/users/{id}/deactivate
func (s *Server) UserDeactivateHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.directory.DeactivateUser(r.Context(), userIDFromCtx(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshInventory(r)
	w.WriteHeader(http.StatusNoContent)
}

// CapabilityGrantHandler handles POST /v1/users/{id}/capabilities
func (s *Server) CapabilityGrantHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Capability string `json:"capability"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Capability == "" {
		writeError(w, http.StatusBadRequest, "capability is required")
		return
	}
	if err := s.directory.GrantCapability(r.Context(), userIDFromCtx(r.Context()), id, req.Capability); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CapabilityRevokeHandler handles DELETE /v1/users/{id}/capabilities/{cap}
func (s *Server) CapabilityRevokeHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	capability := chi.URLParam(r, "cap")
	if err := s.directory.RevokeCapability(r.Context(), userIDFromCtx(r.Context()), id, capability); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupListHandler handles GET /v1/groups
func (s *Server) GroupListHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":    snap.Groups,
		"members":   snap.GroupMembers,
		"subgroups": snap.GroupGroupMembers,
	})
}

// GroupCreateHandler handles POST /v1/groups
func (s *Server) GroupCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	group, err := s.directory.CreateGroup(r.Context(), userIDFromCtx(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshInventory(r)
	writeJSON(w, http.StatusCreated, group)
}

// GroupMemberAddHandler handles POST /v1/groups/{id}/members
func (s *Server) GroupMemberAddHandler(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := s.directory.AddGroupMember(r.Context(), userIDFromCtx(r.Context()), groupID, req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupMemberRemoveHandler handles DELETE /v1/groups/{id}/members/{user}
func (s *Server) GroupMemberRemoveHandler(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "user")
	if err := s.directory.RemoveGroupMember(r.Context(), userIDFromCtx(r.Context()), groupID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubgroupAddHandler handles POST /v1/groups/{id}/subgroups
func (s *Server) SubgroupAddHandler(w http.ResponseWriter, r *http.Request) {
	parentID := chi.URLParam(r, "id")
	var req struct {
		ChildID string `json:"child_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ChildID == "" {
		writeError(w, http.StatusBadRequest, "child_id is required")
		return
	}
	if err := s.directory.AddSubgroup(r.Context(), userIDFromCtx(r.Context()), parentID, req.ChildID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubgroupRemoveHandler handles DELETE /v1/groups/{id}/subgroups/{child}
func (s *Server) SubgroupRemoveHandler(w http.ResponseWriter, r *http.Request) {
	parentID := chi.URLParam(r, "id")
	childID := chi.URLParam(r, "child")
	if err := s.directory.RemoveSubgroup(r.Context(), userIDFromCtx(r.Context()), parentID, childID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupUsersHandler handles GET /v1/groups/{id}/users — the fully expanded
// membership, nested subgroups included.
func (s *Server) GroupUsersHandler(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	snap, err := s.store.ReadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap.GroupByID(groupID) == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	userIDs := groups.ExpandUsers(snap, groupID)
	writeJSON(w, http.StatusOK, map[string]any{"group_id": groupID, "user_ids": userIDs})
}
