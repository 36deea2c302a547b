// Package audit reads the append-only mutation log carried in the
// snapshot. Records are written by the mutating services; this package only
// filters and pages them for display.
package audit

import "github.com/org/svnportal/pkg/models"

// Filter specifies query parameters for audit log retrieval.
type Filter struct {
	Actor  string
	Action string
	Limit  int
	Offset int
}

// Query returns matching records, newest first.
func Query(snap *models.Snapshot, f Filter) []models.AuditRecord {
	var matched []models.AuditRecord
	for i := len(snap.Audit) - 1; i >= 0; i-- {
		rec := snap.Audit[i]
		if f.Actor != "" && rec.Actor != f.Actor {
			continue
		}
		if f.Action != "" && rec.Action != f.Action {
			continue
		}
		matched = append(matched, rec)
	}
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}
