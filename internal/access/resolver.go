// Package access computes the effective access level for a (user,
// repository, path) triple from a snapshot. Resolution is a deterministic
// total function: it never errors, and absence of data degrades to None.
package access

import (
	"github.com/org/svnportal/internal/pathspec"
	"github.com/org/svnportal/pkg/models"
)

// Decision reasons, echoed to callers for display and audit detail.
const (
	ReasonUnknownUser       = "unknown-user"
	ReasonInactiveUser      = "inactive-user"
	ReasonAdminBypass       = "admin-bypass"
	ReasonInvalidPath       = "invalid-path"
	ReasonUnknownRepository = "unknown-repository"
	ReasonBaseline          = "baseline"
	ReasonUserRule          = "user-rule"
	ReasonGroupDeny         = "group-deny"
	ReasonGroupGrant        = "group-grant"
)

// Resolver resolves effective access against a snapshot.
type Resolver struct {
	// DefaultAccess is the server-wide baseline for authenticated users
	// when no rule matches and the repository carries no override.
	DefaultAccess models.AccessLevel
}

// NewResolver returns a Resolver with the given server-wide baseline.
func NewResolver(baseline models.AccessLevel) *Resolver {
	return &Resolver{DefaultAccess: baseline}
}

// Decision is the outcome of one resolution. Matched holds the winning
// specificity tier when rules decided the outcome.
type Decision struct {
	Level   models.AccessLevel      `json:"level"`
	Reason  string                  `json:"reason"`
	Matched []models.PermissionRule `json:"matched,omitempty"`
}

// GetAccess returns the effective access level. Unknown users and
// repositories safely yield None.
func (r *Resolver) GetAccess(snap *models.Snapshot, userID, repositoryID, rawPath string) models.AccessLevel {
	return r.Resolve(snap, userID, repositoryID, rawPath).Level
}

// Resolve computes the effective access level together with the reason and
// the rules that decided it.
//
// Group matching consults the user's direct memberships only. Nested
// subgroups are expanded for membership display (groups.ExpandUsers) but
// carry no permissions of their own here.
func (r *Resolver) Resolve(snap *models.Snapshot, userID, repositoryID, rawPath string) Decision {
	user := snap.UserByID(userID)
	if user == nil {
		return Decision{Level: models.AccessNone, Reason: ReasonUnknownUser}
	}
	if !user.Active {
		return Decision{Level: models.AccessNone, Reason: ReasonInactiveUser}
	}
	if user.HasCapability(models.CapAdminAccess) {
		return Decision{Level: models.AccessWrite, Reason: ReasonAdminBypass}
	}

	path, err := pathspec.Normalize(rawPath)
	if err != nil {
		return Decision{Level: models.AccessNone, Reason: ReasonInvalidPath}
	}
	repo := snap.RepositoryByID(repositoryID)
	if repo == nil {
		return Decision{Level: models.AccessNone, Reason: ReasonUnknownRepository}
	}

	var pool []models.PermissionRule
	if best := BestMatch(snap.Rules, repositoryID, path, models.SubjectUser, userID); best != nil {
		pool = append(pool, *best)
	}
	for _, groupID := range snap.DirectGroupsOf(userID) {
		if best := BestMatch(snap.Rules, repositoryID, path, models.SubjectGroup, groupID); best != nil {
			pool = append(pool, *best)
		}
	}

	if len(pool) == 0 {
		baseline := r.DefaultAccess
		if repo.DefaultAccess != nil {
			baseline = *repo.DefaultAccess
		}
		return Decision{Level: baseline, Reason: ReasonBaseline}
	}

	// Restrict the pool to the most specific tier.
	maxLen := 0
	for _, rule := range pool {
		if len(rule.Path) > maxLen {
			maxLen = len(rule.Path)
		}
	}
	var tier []models.PermissionRule
	for _, rule := range pool {
		if len(rule.Path) == maxLen {
			tier = append(tier, rule)
		}
	}

	// An explicit user rule at the winning specificity overrides groups.
	for _, rule := range tier {
		if rule.SubjectType == models.SubjectUser {
			return Decision{Level: rule.Access, Reason: ReasonUserRule, Matched: tier}
		}
	}
	// Explicit deny among equally specific group rules wins over any grant.
	for _, rule := range tier {
		if rule.Access == models.AccessNone {
			return Decision{Level: models.AccessNone, Reason: ReasonGroupDeny, Matched: tier}
		}
	}
	best := models.AccessNone
	for _, rule := range tier {
		if rule.Access > best {
			best = rule.Access
		}
	}
	return Decision{Level: best, Reason: ReasonGroupGrant, Matched: tier}
}

// BestMatch returns the single best rule for one subject on one path, or
// nil when no rule applies. Candidates must match repository, subject, and
// path hierarchy; among candidates the longest path wins, then the higher
// access level, then the later CreatedAt. The returned pointer aliases the
// rules slice and must be treated as read-only.
func BestMatch(rules []models.PermissionRule, repositoryID, path string, subjectType models.SubjectType, subjectID string) *models.PermissionRule {
	var best *models.PermissionRule
	for i := range rules {
		rule := &rules[i]
		if rule.RepositoryID != repositoryID || rule.SubjectType != subjectType || rule.SubjectID != subjectID {
			continue
		}
		if !pathspec.IsUnder(path, rule.Path) {
			continue
		}
		if best == nil || moreSpecific(rule, best) {
			best = rule
		}
	}
	return best
}

func moreSpecific(a, b *models.PermissionRule) bool {
	if len(a.Path) != len(b.Path) {
		return len(a.Path) > len(b.Path)
	}
	if a.Access != b.Access {
		return a.Access > b.Access
	}
	return a.CreatedAt.After(b.CreatedAt)
}
