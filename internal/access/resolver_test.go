package access

import (
	"testing"
	"time"

	"github.com/org/svnportal/pkg/models"
)

const repoID = "repo-1"

type fixture struct {
	snap *models.Snapshot
	t0   time.Time
}

func newFixture() *fixture {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := &models.Snapshot{
		Repositories: []models.Repository{
			{ID: repoID, Name: "main", Location: "/srv/svn/main", CreatedAt: t0},
		},
		Users: []models.User{
			{ID: "alice", Username: "alice", Active: true, CreatedAt: t0},
			{ID: "bob", Username: "bob", Active: true, CreatedAt: t0},
			{ID: "root", Username: "root", Active: true, Capabilities: []string{models.CapAdminAccess}, CreatedAt: t0},
			{ID: "gone", Username: "gone", Active: false, CreatedAt: t0},
		},
		Groups: []models.Group{
			{ID: "dev", Name: "developers", CreatedAt: t0},
			{ID: "ops", Name: "operations", CreatedAt: t0},
			{ID: "outer", Name: "outer", CreatedAt: t0},
		},
	}
	return &fixture{snap: snap, t0: t0}
}

func (f *fixture) member(groupID, userID string) {
	f.snap.GroupMembers = append(f.snap.GroupMembers, models.GroupMember{GroupID: groupID, UserID: userID})
}

func (f *fixture) rule(path string, st models.SubjectType, subjectID string, access models.AccessLevel, age time.Duration) models.PermissionRule {
	r := models.PermissionRule{
		ID:           models.NewID(),
		RepositoryID: repoID,
		Path:         path,
		SubjectType:  st,
		SubjectID:    subjectID,
		Access:       access,
		CreatedAt:    f.t0.Add(age),
	}
	f.snap.Rules = append(f.snap.Rules, r)
	return r
}

func TestAdminBypass(t *testing.T) {
	f := newFixture()
	f.rule("/", models.SubjectUser, "root", models.AccessNone, 0)
	r := NewResolver(models.AccessRead)

	for _, path := range []string{"/", "/trunk", "/anything/deep"} {
		if got := r.GetAccess(f.snap, "root", repoID, path); got != models.AccessWrite {
			t.Errorf("admin on %q: got %v, want write", path, got)
		}
	}
	if d := r.Resolve(f.snap, "root", repoID, "/"); d.Reason != ReasonAdminBypass {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonAdminBypass)
	}
}

func TestUnknownAndInactiveUsers(t *testing.T) {
	f := newFixture()
	f.rule("/", models.SubjectUser, "gone", models.AccessWrite, 0)
	r := NewResolver(models.AccessRead)

	if got := r.GetAccess(f.snap, "nobody", repoID, "/trunk"); got != models.AccessNone {
		t.Errorf("unknown user: got %v, want none", got)
	}
	if got := r.GetAccess(f.snap, "gone", repoID, "/trunk"); got != models.AccessNone {
		t.Errorf("inactive user: got %v, want none", got)
	}
}

func TestUnknownRepositoryYieldsNone(t *testing.T) {
	f := newFixture()
	r := NewResolver(models.AccessRead)
	if got := r.GetAccess(f.snap, "alice", "no-such-repo", "/"); got != models.AccessNone {
		t.Errorf("unknown repo: got %v, want none", got)
	}
}

func TestInvalidPathYieldsNone(t *testing.T) {
	f := newFixture()
	f.rule("/", models.SubjectUser, "alice", models.AccessWrite, 0)
	r := NewResolver(models.AccessRead)
	if got := r.GetAccess(f.snap, "alice", repoID, "/a/../b"); got != models.AccessNone {
		t.Errorf("invalid path: got %v, want none", got)
	}
}

func TestBaselineWhenNoRuleMatches(t *testing.T) {
	f := newFixture()
	r := NewResolver(models.AccessRead)

	if got := r.GetAccess(f.snap, "alice", repoID, "/trunk"); got != models.AccessRead {
		t.Errorf("server baseline: got %v, want read", got)
	}

	none := models.AccessNone
	f.snap.Repositories[0].DefaultAccess = &none
	if got := r.GetAccess(f.snap, "alice", repoID, "/trunk"); got != models.AccessNone {
		t.Errorf("repo override baseline: got %v, want none", got)
	}
}

func TestLongestPrefixWins(t *testing.T) {
	f := newFixture()
	f.rule("/", models.SubjectUser, "alice", models.AccessRead, 0)
	f.rule("/trunk", models.SubjectUser, "alice", models.AccessWrite, 0)
	r := NewResolver(models.AccessRead)

	if got := r.GetAccess(f.snap, "alice", repoID, "/trunk/sub/file"); got != models.AccessWrite {
		t.Errorf("got %v, want write", got)
	}
	if got := r.GetAccess(f.snap, "alice", repoID, "/tags"); got != models.AccessRead {
		t.Errorf("outside /trunk: got %v, want read", got)
	}
}

func TestUserOverridesGroupAtEqualSpecificity(t *testing.T) {
	f := newFixture()
	f.member("dev", "alice")
	f.rule("/a", models.SubjectUser, "alice", models.AccessRead, 0)
	f.rule("/a", models.SubjectGroup, "dev", models.AccessWrite, 0)
	r := NewResolver(models.AccessRead)

	d := r.Resolve(f.snap, "alice", repoID, "/a")
	if d.Level != models.AccessRead {
		t.Errorf("got %v, want read (user rule wins)", d.Level)
	}
	if d.Reason != ReasonUserRule {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonUserRule)
	}
}

func TestMoreSpecificGroupBeatsUserRule(t *testing.T) {
	// User precedence only applies within the winning tier.
	f := newFixture()
	f.member("dev", "alice")
	f.rule("/", models.SubjectUser, "alice", models.AccessWrite, 0)
	f.rule("/locked", models.SubjectGroup, "dev", models.AccessNone, 0)
	r := NewResolver(models.AccessRead)

	if got := r.GetAccess(f.snap, "alice", repoID, "/locked/file"); got != models.AccessNone {
		t.Errorf("got %v, want none (deeper group rule wins)", got)
	}
}

func TestDenyWinsAmongTiedGroups(t *testing.T) {
	f := newFixture()
	f.member("dev", "alice")
	f.member("ops", "alice")
	f.rule("/a", models.SubjectGroup, "dev", models.AccessWrite, 0)
	f.rule("/a", models.SubjectGroup, "ops", models.AccessNone, 0)
	r := NewResolver(models.AccessRead)

	d := r.Resolve(f.snap, "alice", repoID, "/a")
	if d.Level != models.AccessNone {
		t.Errorf("got %v, want none", d.Level)
	}
	if d.Reason != ReasonGroupDeny {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonGroupDeny)
	}
}

func TestMaxWinsAmongTiedNonDenyingGroups(t *testing.T) {
	f := newFixture()
	f.member("dev", "alice")
	f.member("ops", "alice")
	f.rule("/a", models.SubjectGroup, "dev", models.AccessRead, 0)
	f.rule("/a", models.SubjectGroup, "ops", models.AccessWrite, 0)
	r := NewResolver(models.AccessRead)

	if got := r.GetAccess(f.snap, "alice", repoID, "/a"); got != models.AccessWrite {
		t.Errorf("got %v, want write", got)
	}
}

func TestBestMatchTieBreakByRecency(t *testing.T) {
	f := newFixture()
	f.rule("/a", models.SubjectUser, "alice", models.AccessRead, 0)
	later := f.rule("/a", models.SubjectUser, "alice", models.AccessRead, time.Hour)

	best := BestMatch(f.snap.Rules, repoID, "/a", models.SubjectUser, "alice")
	if best == nil {
		t.Fatal("no best match")
	}
	if best.ID != later.ID {
		t.Errorf("best match id = %s, want later rule %s", best.ID, later.ID)
	}
}

func TestBestMatchTieBreakByAccessBeforeRecency(t *testing.T) {
	f := newFixture()
	high := f.rule("/a", models.SubjectUser, "alice", models.AccessWrite, 0)
	f.rule("/a", models.SubjectUser, "alice", models.AccessRead, time.Hour)

	best := BestMatch(f.snap.Rules, repoID, "/a", models.SubjectUser, "alice")
	if best == nil || best.ID != high.ID {
		t.Errorf("higher access must win the length tie regardless of age")
	}
}

func TestNestedSubgroupsDoNotGrantAccess(t *testing.T) {
	// bob is in "outer" only via subgroup nesting; the resolver consults
	// direct memberships only, so the outer group's grant must not apply.
	f := newFixture()
	f.member("dev", "bob")
	f.snap.GroupGroupMembers = append(f.snap.GroupGroupMembers, models.GroupGroupMember{
		ParentGroupID: "outer", ChildGroupID: "dev",
	})
	none := models.AccessNone
	f.snap.Repositories[0].DefaultAccess = &none
	f.rule("/a", models.SubjectGroup, "outer", models.AccessWrite, 0)
	r := NewResolver(models.AccessRead)

	if got := r.GetAccess(f.snap, "bob", repoID, "/a"); got != models.AccessNone {
		t.Errorf("got %v, want none (nested membership must not grant)", got)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	f := newFixture()
	f.member("dev", "alice")
	f.rule("/a", models.SubjectGroup, "dev", models.AccessWrite, 0)
	f.rule("/a/b", models.SubjectUser, "alice", models.AccessRead, 0)
	r := NewResolver(models.AccessRead)

	first := r.Resolve(f.snap, "alice", repoID, "/a/b/c")
	for i := 0; i < 10; i++ {
		again := r.Resolve(f.snap, "alice", repoID, "/a/b/c")
		if again.Level != first.Level || again.Reason != first.Reason {
			t.Fatalf("resolution not deterministic: %v vs %v", again, first)
		}
	}
}
