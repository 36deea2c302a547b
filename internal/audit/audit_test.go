package audit

import (
	"testing"

	"github.com/org/svnportal/pkg/models"
)

func logWith(t *testing.T) *models.Snapshot {
	t.Helper()
	snap := &models.Snapshot{}
	snap.AppendAudit("alice", models.ActionRuleAdd, "r1", "success", "")
	snap.AppendAudit("bob", models.ActionRuleDelete, "r1", "success", "")
	snap.AppendAudit("alice", models.ActionRuleAdd, "r2", "success", "")
	return snap
}

func TestQueryNewestFirst(t *testing.T) {
	got := Query(logWith(t), Filter{})
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Target != "r2" || got[2].Target != "r1" {
		t.Errorf("not newest-first: %+v", got)
	}
}

func TestQueryFilters(t *testing.T) {
	snap := logWith(t)
	if got := Query(snap, Filter{Actor: "alice"}); len(got) != 2 {
		t.Errorf("actor filter: got %d, want 2", len(got))
	}
	if got := Query(snap, Filter{Action: models.ActionRuleDelete}); len(got) != 1 || got[0].Actor != "bob" {
		t.Errorf("action filter: %+v", got)
	}
	if got := Query(snap, Filter{Limit: 1}); len(got) != 1 || got[0].Target != "r2" {
		t.Errorf("limit: %+v", got)
	}
	if got := Query(snap, Filter{Offset: 2}); len(got) != 1 {
		t.Errorf("offset: %+v", got)
	}
	if got := Query(snap, Filter{Offset: 9}); got != nil {
		t.Errorf("offset past end: %+v", got)
	}
}
