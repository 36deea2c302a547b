package models

import (
	"fmt"
	"time"
)

// AccessLevel is the effective permission a subject holds on a path.
// Levels are ordered: None < Read < Write.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessWrite
)

func (a AccessLevel) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// ParseAccessLevel parses the string form produced by String.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch s {
	case "none":
		return AccessNone, nil
	case "read":
		return AccessRead, nil
	case "write":
		return AccessWrite, nil
	default:
		return AccessNone, fmt.Errorf("unknown access level %q", s)
	}
}

// SubjectType identifies what kind of entity a permission rule targets.
type SubjectType string

const (
	SubjectUser  SubjectType = "user"
	SubjectGroup SubjectType = "group"
)

// User capability flags.
const (
	// CapAdminAccess lets a user manage authorization and bypasses
	// rule matching entirely (resolves to Write on every path).
	CapAdminAccess = "admin-access"
)

// Repository is a managed SVN repository. Repositories are archived,
// never hard-deleted.
type Repository struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Location      string       `json:"location"`
	Archived      bool         `json:"archived"`
	DefaultAccess *AccessLevel `json:"default_access,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// User is a portal account. Inactive users never resolve above None.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Active       bool      `json:"active"`
	Capabilities []string  `json:"capabilities,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasCapability reports whether the user holds the given capability flag.
func (u *User) HasCapability(cap string) bool {
	for _, c := range u.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Group is a named vertex in the membership graph. No group attribute
// affects access resolution.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember is a direct, non-transitive user membership edge.
type GroupMember struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// GroupGroupMember includes the child group's membership inside the parent.
// The directed graph formed by these edges must stay acyclic.
type GroupGroupMember struct {
	ParentGroupID string `json:"parent_group_id"`
	ChildGroupID  string `json:"child_group_id"`
}

// PermissionRule grants or denies access on a repository path for one
// subject. Path is always stored normalized. Multiple rules may target the
// same (repository, path, subject); the resolver's tie-break decides.
type PermissionRule struct {
	ID           string      `json:"id"`
	RepositoryID string      `json:"repository_id"`
	Path         string      `json:"path"`
	SubjectType  SubjectType `json:"subject_type"`
	SubjectID    string      `json:"subject_id"`
	Access       AccessLevel `json:"access"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Audit action kinds.
const (
	ActionRuleAdd             = "rule.add"
	ActionRuleDelete          = "rule.delete"
	ActionRepoCreate          = "repo.create"
	ActionRepoArchive         = "repo.archive"
	ActionRepoDefaultSet      = "repo.default.set"
	ActionUserCreate          = "user.create"
	ActionUserDeactivate      = "user.deactivate"
	ActionUserCapGrant        = "user.capability.grant"
	ActionUserCapRevoke       = "user.capability.revoke"
	ActionGroupCreate         = "group.create"
	ActionGroupMemberAdd      = "group.member.add"
	ActionGroupMemberRemove   = "group.member.remove"
	ActionGroupSubgroupAdd    = "group.subgroup.add"
	ActionGroupSubgroupRemove = "group.subgroup.remove"
)

// AuditRecord is one entry of the append-only mutation log. Existing
// entries are never modified or removed.
type AuditRecord struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}
