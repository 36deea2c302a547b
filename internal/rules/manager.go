// Package rules validates and applies permission-rule mutations. Manager is
// the only writer of the snapshot's rule list.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/org/svnportal/internal/pathspec"
	"github.com/org/svnportal/internal/state"
	"github.com/org/svnportal/pkg/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrRuleNotFound       = errors.New("rule not found")
)

// Syncer regenerates the downstream authz enforcement file from a snapshot.
// Sync runs after the snapshot is durably committed; its failure is reported
// as a warning and never rolls back the committed change.
type Syncer interface {
	Sync(snap *models.Snapshot) error
}

// Manager applies rule mutations against the state store.
type Manager struct {
	store state.Store
	sync  Syncer
}

// NewManager returns a Manager. sync may be nil.
func NewManager(store state.Store, sync Syncer) *Manager {
	return &Manager{store: store, sync: sync}
}

// AddRule validates and appends a permission rule, records an audit entry,
// and commits the new snapshot atomically. The created rule is returned.
func (m *Manager) AddRule(ctx context.Context, actor, repositoryID, rawPath string, subjectType models.SubjectType, subjectID string, level models.AccessLevel) (*models.PermissionRule, error) {
	path, err := pathspec.Normalize(rawPath)
	if err != nil {
		return nil, err
	}

	var created models.PermissionRule
	snap, err := state.Apply(ctx, m.store, func(snap *models.Snapshot) error {
		if snap.RepositoryByID(repositoryID) == nil {
			return fmt.Errorf("%w: %s", ErrRepositoryNotFound, repositoryID)
		}
		if err := checkSubject(snap, subjectType, subjectID); err != nil {
			return err
		}
		created = models.PermissionRule{
			ID:           models.NewID(),
			RepositoryID: repositoryID,
			Path:         path,
			SubjectType:  subjectType,
			SubjectID:    subjectID,
			Access:       level,
			CreatedAt:    time.Now().UTC(),
		}
		snap.Rules = append(snap.Rules, created)
		snap.AppendAudit(actor, models.ActionRuleAdd, created.ID, "success",
			fmt.Sprintf("repo=%s path=%s %s=%s access=%s", repositoryID, path, subjectType, subjectID, level))
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.notifySync(snap)
	return &created, nil
}

// DeleteRule removes a rule by id, records an audit entry, and commits.
func (m *Manager) DeleteRule(ctx context.Context, actor, ruleID string) error {
	snap, err := state.Apply(ctx, m.store, func(snap *models.Snapshot) error {
		idx := -1
		for i := range snap.Rules {
			if snap.Rules[i].ID == ruleID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
		}
		removed := snap.Rules[idx]
		snap.Rules = append(snap.Rules[:idx], snap.Rules[idx+1:]...)
		snap.AppendAudit(actor, models.ActionRuleDelete, ruleID, "success",
			fmt.Sprintf("repo=%s path=%s %s=%s", removed.RepositoryID, removed.Path, removed.SubjectType, removed.SubjectID))
		return nil
	})
	if err != nil {
		return err
	}
	m.notifySync(snap)
	return nil
}

func checkSubject(snap *models.Snapshot, subjectType models.SubjectType, subjectID string) error {
	switch subjectType {
	case models.SubjectUser:
		u := snap.UserByID(subjectID)
		if u == nil || !u.Active {
			return fmt.Errorf("%w: user %s", ErrSubjectNotFound, subjectID)
		}
	case models.SubjectGroup:
		if snap.GroupByID(subjectID) == nil {
			return fmt.Errorf("%w: group %s", ErrSubjectNotFound, subjectID)
		}
	default:
		return fmt.Errorf("%w: unknown subject type %q", ErrSubjectNotFound, subjectType)
	}
	return nil
}

func (m *Manager) notifySync(snap *models.Snapshot) {
	if m.sync == nil {
		return
	}
	// Best-effort: the rule change is already committed. The portal's view
	// and the enforced view diverge until the next successful sync.
	if err := m.sync.Sync(snap); err != nil {
		log.Warn().Err(err).Msg("authz file sync failed after committed rule change")
	}
}

// ForRepository returns the rules scoped to one repository.
func ForRepository(snap *models.Snapshot, repositoryID string) []models.PermissionRule {
	var out []models.PermissionRule
	for _, r := range snap.Rules {
		if r.RepositoryID == repositoryID {
			out = append(out, r)
		}
	}
	return out
}

// ForSubject returns the rules targeting one subject across repositories.
func ForSubject(snap *models.Snapshot, subjectType models.SubjectType, subjectID string) []models.PermissionRule {
	var out []models.PermissionRule
	for _, r := range snap.Rules {
		if r.SubjectType == subjectType && r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	return out
}
