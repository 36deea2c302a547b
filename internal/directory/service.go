// Package directory manages the portal's entity lifecycle: repository
// provisioning and archival, user accounts, groups, and membership edges.
// Like the rule manager, every mutation clones the snapshot, appends an
// audit record, and commits atomically through the state store.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/org/svnportal/internal/groups"
	"github.com/org/svnportal/internal/state"
	"github.com/org/svnportal/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateName      = errors.New("name already in use")
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrUserNotFound       = errors.New("user not found")
)

// Syncer regenerates the downstream authz file; see rules.Syncer.
type Syncer interface {
	Sync(snap *models.Snapshot) error
}

// Service applies directory mutations against the state store.
type Service struct {
	store state.Store
	sync  Syncer
}

// NewService returns a Service. sync may be nil.
func NewService(store state.Store, sync Syncer) *Service {
	return &Service{store: store, sync: sync}
}

// CreateRepository provisions a repository entry. Names are unique across
// both live and archived repositories.
func (s *Service) CreateRepository(ctx context.Context, actor, name, location string, defaultAccess *models.AccessLevel) (*models.Repository, error) {
	var created models.Repository
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		for _, r := range snap.Repositories {
			if r.Name == name {
				return fmt.Errorf("%w: repository %s", ErrDuplicateName, name)
			}
		}
		created = models.Repository{
			ID:            models.NewID(),
			Name:          name,
			Location:      location,
			DefaultAccess: defaultAccess,
			CreatedAt:     time.Now().UTC(),
		}
		snap.Repositories = append(snap.Repositories, created)
		snap.AppendAudit(actor, models.ActionRepoCreate, created.ID, "success", "name="+name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifySync(snap)
	return &created, nil
}

// ArchiveRepository flags a repository as archived. Repositories are never
// hard-deleted; their rules and audit trail stay intact.
func (s *Service) ArchiveRepository(ctx context.Context, actor, repositoryID string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		repo := snap.RepositoryByID(repositoryID)
		if repo == nil {
			return fmt.Errorf("%w: %s", ErrRepositoryNotFound, repositoryID)
		}
		repo.Archived = true
		snap.AppendAudit(actor, models.ActionRepoArchive, repositoryID, "success", "name="+repo.Name)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// SetRepositoryAccess replaces the repository's baseline override. A nil
// level clears the override, falling back to the server-wide default.
func (s *Service) SetRepositoryAccess(ctx context.Context, actor, repositoryID string, level *models.AccessLevel) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		repo := snap.RepositoryByID(repositoryID)
		if repo == nil {
			return fmt.Errorf("%w: %s", ErrRepositoryNotFound, repositoryID)
		}
		repo.DefaultAccess = level
		detail := "default=server"
		if level != nil {
			detail = "default=" + level.String()
		}
		snap.AppendAudit(actor, models.ActionRepoDefaultSet, repositoryID, "success", detail)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// CreateUser creates an active account. An empty password leaves the
// account without a usable login until a password is set.
func (s *Service) CreateUser(ctx context.Context, actor, username, displayName, password string, capabilities []string) (*models.User, error) {
	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		hash = string(h)
	}

	var created models.User
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		if snap.UserByUsername(username) != nil {
			return fmt.Errorf("%w: user %s", ErrDuplicateName, username)
		}
		created = models.User{
			ID:           models.NewID(),
			Username:     username,
			DisplayName:  displayName,
			PasswordHash: hash,
			Active:       true,
			Capabilities: capabilities,
			CreatedAt:    time.Now().UTC(),
		}
		snap.Users = append(snap.Users, created)
		snap.AppendAudit(actor, models.ActionUserCreate, created.ID, "success", "username="+username)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifySync(snap)
	return &created, nil
}

// DeactivateUser clears the active flag. The user's rules remain in place
// but resolve to None while inactive.
func (s *Service) DeactivateUser(ctx context.Context, actor, userID string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		u := snap.UserByID(userID)
		if u == nil {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		u.Active = false
		snap.AppendAudit(actor, models.ActionUserDeactivate, userID, "success", "username="+u.Username)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// GrantCapability adds a capability flag to an account. Granting a flag the
// user already holds is a no-op.
func (s *Service) GrantCapability(ctx context.Context, actor, userID, capability string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		u := snap.UserByID(userID)
		if u == nil {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		if u.HasCapability(capability) {
			return nil
		}
		u.Capabilities = append(u.Capabilities, capability)
		snap.AppendAudit(actor, models.ActionUserCapGrant, userID, "success", "capability="+capability)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// RevokeCapability removes a capability flag from an account.
func (s *Service) RevokeCapability(ctx context.Context, actor, userID, capability string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		u := snap.UserByID(userID)
		if u == nil {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		kept := u.Capabilities[:0]
		for _, c := range u.Capabilities {
			if c != capability {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(u.Capabilities) {
			return nil
		}
		u.Capabilities = kept
		snap.AppendAudit(actor, models.ActionUserCapRevoke, userID, "success", "capability="+capability)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// CreateGroup adds a group vertex.
func (s *Service) CreateGroup(ctx context.Context, actor, name string) (*models.Group, error) {
	var created models.Group
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		for _, g := range snap.Groups {
			if g.Name == name {
				return fmt.Errorf("%w: group %s", ErrDuplicateName, name)
			}
		}
		created = models.Group{ID: models.NewID(), Name: name, CreatedAt: time.Now().UTC()}
		snap.Groups = append(snap.Groups, created)
		snap.AppendAudit(actor, models.ActionGroupCreate, created.ID, "success", "name="+name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifySync(snap)
	return &created, nil
}

// AddGroupMember inserts a direct membership edge.
func (s *Service) AddGroupMember(ctx context.Context, actor, groupID, userID string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		if err := groups.AddMember(snap, groupID, userID); err != nil {
			return err
		}
		snap.AppendAudit(actor, models.ActionGroupMemberAdd, groupID, "success", "user="+userID)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// RemoveGroupMember deletes a direct membership edge.
func (s *Service) RemoveGroupMember(ctx context.Context, actor, groupID, userID string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		if err := groups.RemoveMember(snap, groupID, userID); err != nil {
			return err
		}
		snap.AppendAudit(actor, models.ActionGroupMemberRemove, groupID, "success", "user="+userID)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// AddSubgroup inserts a subgroup edge, rejecting self-references,
// duplicates, and anything that would create a cycle.
func (s *Service) AddSubgroup(ctx context.Context, actor, parentID, childID string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		if err := groups.AddSubgroup(snap, parentID, childID); err != nil {
			return err
		}
		snap.AppendAudit(actor, models.ActionGroupSubgroupAdd, parentID, "success", "child="+childID)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// RemoveSubgroup deletes a subgroup edge.
func (s *Service) RemoveSubgroup(ctx context.Context, actor, parentID, childID string) error {
	snap, err := state.Apply(ctx, s.store, func(snap *models.Snapshot) error {
		if err := groups.RemoveSubgroup(snap, parentID, childID); err != nil {
			return err
		}
		snap.AppendAudit(actor, models.ActionGroupSubgroupRemove, parentID, "success", "child="+childID)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifySync(snap)
	return nil
}

// EnsureAdmin creates a bootstrap administrator account when no user
// exists yet. Returns true if the account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	snap, err := s.store.ReadSnapshot(ctx)
	if err != nil {
		return false, err
	}
	if len(snap.Users) > 0 {
		return false, nil
	}
	_, err = s.CreateUser(ctx, "system", username, "Administrator", password, []string{models.CapAdminAccess})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) notifySync(snap *models.Snapshot) {
	if s.sync == nil {
		return
	}
	if err := s.sync.Sync(snap); err != nil {
		log.Warn().Err(err).Msg("authz file sync failed after committed directory change")
	}
}
