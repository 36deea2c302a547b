// Package groups maintains the group-membership graph: user membership
// edges, subgroup inclusion edges, and recursive member expansion. The
// subgroup relation must stay acyclic; every edge insert is guarded by a
// reachability check, so the graph structurally cannot acquire a cycle.
package groups

import (
	"errors"
	"sort"

	"github.com/org/svnportal/pkg/models"
)

var (
	ErrSelfReference    = errors.New("group cannot contain itself")
	ErrGroupNotFound    = errors.New("group not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEdge    = errors.New("edge already exists")
	ErrWouldCreateCycle = errors.New("edge would create a cycle")
	ErrEdgeNotFound     = errors.New("edge not found")
)

// AddSubgroup inserts a subgroup edge parent -> child into the snapshot.
// The snapshot must be a private clone owned by the caller.
func AddSubgroup(snap *models.Snapshot, parentID, childID string) error {
	if parentID == childID {
		return ErrSelfReference
	}
	if snap.GroupByID(parentID) == nil || snap.GroupByID(childID) == nil {
		return ErrGroupNotFound
	}
	for _, e := range snap.GroupGroupMembers {
		if e.ParentGroupID == parentID && e.ChildGroupID == childID {
			return ErrDuplicateEdge
		}
	}
	if reaches(snap, childID, parentID) {
		return ErrWouldCreateCycle
	}
	snap.GroupGroupMembers = append(snap.GroupGroupMembers, models.GroupGroupMember{
		ParentGroupID: parentID,
		ChildGroupID:  childID,
	})
	return nil
}

// RemoveSubgroup deletes a subgroup edge.
func RemoveSubgroup(snap *models.Snapshot, parentID, childID string) error {
	for i, e := range snap.GroupGroupMembers {
		if e.ParentGroupID == parentID && e.ChildGroupID == childID {
			snap.GroupGroupMembers = append(snap.GroupGroupMembers[:i], snap.GroupGroupMembers[i+1:]...)
			return nil
		}
	}
	return ErrEdgeNotFound
}

// AddMember inserts a direct user membership edge.
func AddMember(snap *models.Snapshot, groupID, userID string) error {
	if snap.GroupByID(groupID) == nil {
		return ErrGroupNotFound
	}
	if snap.UserByID(userID) == nil {
		return ErrUserNotFound
	}
	for _, m := range snap.GroupMembers {
		if m.GroupID == groupID && m.UserID == userID {
			return ErrDuplicateEdge
		}
	}
	snap.GroupMembers = append(snap.GroupMembers, models.GroupMember{GroupID: groupID, UserID: userID})
	return nil
}

// RemoveMember deletes a direct user membership edge.
func RemoveMember(snap *models.Snapshot, groupID, userID string) error {
	for i, m := range snap.GroupMembers {
		if m.GroupID == groupID && m.UserID == userID {
			snap.GroupMembers = append(snap.GroupMembers[:i], snap.GroupMembers[i+1:]...)
			return nil
		}
	}
	return ErrEdgeNotFound
}

// reaches reports whether to is reachable from from over zero or more
// subgroup edges. Breadth-first over primitive ids; no node references.
func reaches(snap *models.Snapshot, from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range snap.GroupGroupMembers {
			if e.ParentGroupID != cur || seen[e.ChildGroupID] {
				continue
			}
			if e.ChildGroupID == to {
				return true
			}
			seen[e.ChildGroupID] = true
			queue = append(queue, e.ChildGroupID)
		}
	}
	return false
}

// ExpandUsers returns the ids of all users reachable from the group through
// direct membership and nested subgroups, deduplicated and sorted. This is
// the membership-display expansion; access resolution deliberately consults
// only direct memberships.
func ExpandUsers(snap *models.Snapshot, groupID string) []string {
	set := map[string]bool{}
	// The visiting set is unreachable given the insert-time cycle guard,
	// but protects expansion against a corrupted snapshot.
	visiting := map[string]bool{}
	expand(snap, groupID, set, visiting)
	users := make([]string, 0, len(set))
	for id := range set {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

func expand(snap *models.Snapshot, groupID string, set, visiting map[string]bool) {
	if visiting[groupID] {
		return
	}
	visiting[groupID] = true
	for _, m := range snap.GroupMembers {
		if m.GroupID == groupID {
			set[m.UserID] = true
		}
	}
	for _, e := range snap.GroupGroupMembers {
		if e.ParentGroupID == groupID {
			expand(snap, e.ChildGroupID, set, visiting)
		}
	}
}
