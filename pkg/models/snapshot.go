package models

import "time"

// Snapshot is an immutable, fully materialized view of all
// authorization-relevant state at one instant. Mutators clone the snapshot,
// edit the clone, and commit the clone as one atomic replace; a snapshot
// handed to a reader is never edited in place.
type Snapshot struct {
	Version           int64              `json:"version"`
	Repositories      []Repository       `json:"repositories"`
	Users             []User             `json:"users"`
	Groups            []Group            `json:"groups"`
	GroupMembers      []GroupMember      `json:"group_members"`
	GroupGroupMembers []GroupGroupMember `json:"group_group_members"`
	Rules             []PermissionRule   `json:"rules"`
	Audit             []AuditRecord      `json:"audit"`
}

// Clone returns a deep copy sharing nothing with the receiver.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Version:           s.Version,
		Repositories:      make([]Repository, len(s.Repositories)),
		Users:             make([]User, len(s.Users)),
		Groups:            make([]Group, len(s.Groups)),
		GroupMembers:      make([]GroupMember, len(s.GroupMembers)),
		GroupGroupMembers: make([]GroupGroupMember, len(s.GroupGroupMembers)),
		Rules:             make([]PermissionRule, len(s.Rules)),
		Audit:             make([]AuditRecord, len(s.Audit)),
	}
	copy(c.Users, s.Users)
	copy(c.Groups, s.Groups)
	copy(c.GroupMembers, s.GroupMembers)
	copy(c.GroupGroupMembers, s.GroupGroupMembers)
	copy(c.Rules, s.Rules)
	copy(c.Audit, s.Audit)
	for i, r := range s.Repositories {
		if r.DefaultAccess != nil {
			d := *r.DefaultAccess
			r.DefaultAccess = &d
		}
		c.Repositories[i] = r
	}
	for i := range c.Users {
		if caps := c.Users[i].Capabilities; caps != nil {
			c.Users[i].Capabilities = append([]string(nil), caps...)
		}
	}
	return c
}

// RepositoryByID returns the repository or nil.
func (s *Snapshot) RepositoryByID(id string) *Repository {
	for i := range s.Repositories {
		if s.Repositories[i].ID == id {
			return &s.Repositories[i]
		}
	}
	return nil
}

// UserByID returns the user or nil.
func (s *Snapshot) UserByID(id string) *User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// UserByUsername returns the user or nil.
func (s *Snapshot) UserByUsername(name string) *User {
	for i := range s.Users {
		if s.Users[i].Username == name {
			return &s.Users[i]
		}
	}
	return nil
}

// GroupByID returns the group or nil.
func (s *Snapshot) GroupByID(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// DirectGroupsOf returns the ids of groups the user is a direct member of.
// Subgroup edges are not followed here.
func (s *Snapshot) DirectGroupsOf(userID string) []string {
	var ids []string
	for _, m := range s.GroupMembers {
		if m.UserID == userID {
			ids = append(ids, m.GroupID)
		}
	}
	return ids
}

// RuleByID returns the rule or nil.
func (s *Snapshot) RuleByID(id string) *PermissionRule {
	for i := range s.Rules {
		if s.Rules[i].ID == id {
			return &s.Rules[i]
		}
	}
	return nil
}

// AppendAudit appends one record to the audit log and returns its id.
func (s *Snapshot) AppendAudit(actor, action, target, outcome, detail string) string {
	rec := AuditRecord{
		ID:        NewID(),
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		Detail:    detail,
	}
	s.Audit = append(s.Audit, rec)
	return rec.ID
}
