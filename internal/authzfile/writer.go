// Package authzfile renders a snapshot into the SVN authz file format and
// writes it for the web server to enforce. Sync runs after mutations are
// committed; a failed sync leaves the previous file in place until the next
// successful run.
package authzfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/org/svnportal/internal/groups"
	"github.com/org/svnportal/internal/rules"
	"github.com/org/svnportal/pkg/models"
)

// Writer renders and persists the authz file.
type Writer struct {
	// Path is the destination authz file.
	Path string
	// Baseline is the server-wide default for authenticated users,
	// emitted as the "*" entry of each repository root section.
	Baseline models.AccessLevel
}

// New returns a Writer targeting path.
func New(path string, baseline models.AccessLevel) *Writer {
	return &Writer{Path: path, Baseline: baseline}
}

// Sync renders the snapshot and replaces the authz file atomically
// (temp file + rename in the destination directory).
func (w *Writer) Sync(snap *models.Snapshot) error {
	content := Render(snap, w.Baseline)
	dir := filepath.Dir(w.Path)
	tmp, err := os.CreateTemp(dir, ".authz-*")
	if err != nil {
		return fmt.Errorf("creating temp authz file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing authz file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing authz file: %w", err)
	}
	if err := os.Rename(tmpName, w.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing authz file: %w", err)
	}
	return nil
}

// Render produces the authz file content for a snapshot. Group membership
// is fully expanded (nested subgroups flattened to users) because the authz
// format has no notion of group nesting compatible with the portal's graph.
func Render(snap *models.Snapshot, baseline models.AccessLevel) string {
	var b strings.Builder
	b.WriteString("# Generated by svnportal. Do not edit; changes are overwritten on sync.\n\n")

	b.WriteString("[groups]\n")
	groupList := append([]models.Group(nil), snap.Groups...)
	sort.Slice(groupList, func(i, j int) bool { return groupList[i].Name < groupList[j].Name })
	for _, g := range groupList {
		var names []string
		for _, uid := range groups.ExpandUsers(snap, g.ID) {
			if u := snap.UserByID(uid); u != nil && u.Active {
				names = append(names, u.Username)
			}
		}
		fmt.Fprintf(&b, "%s = %s\n", g.Name, strings.Join(names, ", "))
	}

	repoList := append([]models.Repository(nil), snap.Repositories...)
	sort.Slice(repoList, func(i, j int) bool { return repoList[i].Name < repoList[j].Name })
	for _, repo := range repoList {
		if repo.Archived {
			continue
		}
		renderRepo(&b, snap, repo, baseline)
	}
	return b.String()
}

func renderRepo(b *strings.Builder, snap *models.Snapshot, repo models.Repository, baseline models.AccessLevel) {
	repoRules := rules.ForRepository(snap, repo.ID)

	paths := map[string][]models.PermissionRule{}
	for _, r := range repoRules {
		paths[r.Path] = append(paths[r.Path], r)
	}
	if _, ok := paths["/"]; !ok {
		paths["/"] = nil
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	for _, p := range sorted {
		fmt.Fprintf(b, "\n[%s:%s]\n", repo.Name, p)
		if p == "/" {
			level := baseline
			if repo.DefaultAccess != nil {
				level = *repo.DefaultAccess
			}
			fmt.Fprintf(b, "* = %s\n", accessString(level))
		}
		entries := paths[p]
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].SubjectType != entries[j].SubjectType {
				return entries[i].SubjectType == models.SubjectUser
			}
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		})
		for _, r := range entries {
			name, ok := subjectName(snap, r)
			if !ok {
				continue
			}
			fmt.Fprintf(b, "%s = %s\n", name, accessString(r.Access))
		}
	}
}

func subjectName(snap *models.Snapshot, r models.PermissionRule) (string, bool) {
	switch r.SubjectType {
	case models.SubjectUser:
		// Deactivated accounts resolve to None; keep them out of the file.
		if u := snap.UserByID(r.SubjectID); u != nil && u.Active {
			return u.Username, true
		}
	case models.SubjectGroup:
		if g := snap.GroupByID(r.SubjectID); g != nil {
			return "@" + g.Name, true
		}
	}
	return "", false
}

// accessString maps an access level to the authz file notation; an empty
// right-hand side is an explicit deny.
func accessString(level models.AccessLevel) string {
	switch level {
	case models.AccessRead:
		return "r"
	case models.AccessWrite:
		return "rw"
	default:
		return ""
	}
}
