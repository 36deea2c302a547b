package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/org/svnportal/internal/groups"
	"github.com/org/svnportal/internal/state"
	"github.com/org/svnportal/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateRepository(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	read := models.AccessRead
	repo, err := svc.CreateRepository(ctx, "admin", "main", "/srv/svn/main", &read)
	if err != nil {
		t.Fatalf("CreateRepository: %v", err)
	}
	if _, err := svc.CreateRepository(ctx, "admin", "main", "/srv/svn/other", nil); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("want ErrDuplicateName, got %v", err)
	}

	snap, _ := store.ReadSnapshot(ctx)
	got := snap.RepositoryByID(repo.ID)
	if got == nil || got.Name != "main" || got.DefaultAccess == nil || *got.DefaultAccess != models.AccessRead {
		t.Fatalf("unexpected repository: %+v", got)
	}
	if len(snap.Audit) != 1 || snap.Audit[0].Action != models.ActionRepoCreate {
		t.Errorf("unexpected audit log: %+v", snap.Audit)
	}
}

func TestArchiveRepository(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	repo, err := svc.CreateRepository(ctx, "admin", "main", "/srv/svn/main", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ArchiveRepository(ctx, "admin", "missing"); !errors.Is(err, ErrRepositoryNotFound) {
		t.Fatalf("want ErrRepositoryNotFound, got %v", err)
	}
	if err := svc.ArchiveRepository(ctx, "admin", repo.ID); err != nil {
		t.Fatalf("ArchiveRepository: %v", err)
	}

	snap, _ := store.ReadSnapshot(ctx)
	if got := snap.RepositoryByID(repo.ID); got == nil || !got.Archived {
		t.Errorf("repository not archived: %+v", got)
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	u, err := svc.CreateUser(ctx, "admin", "alice", "Alice", "s3cret", nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	snap, _ := store.ReadSnapshot(ctx)
	stored := snap.UserByID(u.ID)
	if stored.PasswordHash == "" || stored.PasswordHash == "s3cret" {
		t.Fatal("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}

	if _, err := svc.CreateUser(ctx, "admin", "alice", "Other Alice", "x", nil); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("want ErrDuplicateName, got %v", err)
	}
}

func TestDeactivateUser(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	u, err := svc.CreateUser(ctx, "admin", "bob", "Bob", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeactivateUser(ctx, "admin", "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
	if err := svc.DeactivateUser(ctx, "admin", u.ID); err != nil {
		t.Fatal(err)
	}
	snap, _ := store.ReadSnapshot(ctx)
	if snap.UserByID(u.ID).Active {
		t.Error("user still active")
	}
}

func TestSetRepositoryAccess(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	repo, err := svc.CreateRepository(ctx, "admin", "main", "/srv/svn/main", nil)
	if err != nil {
		t.Fatal(err)
	}
	read := models.AccessRead
	if err := svc.SetRepositoryAccess(ctx, "admin", repo.ID, &read); err != nil {
		t.Fatalf("SetRepositoryAccess: %v", err)
	}
	snap, _ := store.ReadSnapshot(ctx)
	if got := snap.RepositoryByID(repo.ID); got.DefaultAccess == nil || *got.DefaultAccess != models.AccessRead {
		t.Fatalf("override not set: %+v", got)
	}

	if err := svc.SetRepositoryAccess(ctx, "admin", repo.ID, nil); err != nil {
		t.Fatal(err)
	}
	snap, _ = store.ReadSnapshot(ctx)
	if got := snap.RepositoryByID(repo.ID); got.DefaultAccess != nil {
		t.Fatalf("override not cleared: %+v", got)
	}
	if err := svc.SetRepositoryAccess(ctx, "admin", "missing", nil); !errors.Is(err, ErrRepositoryNotFound) {
		t.Fatalf("want ErrRepositoryNotFound, got %v", err)
	}
}

func TestCapabilityGrantRevoke(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	u, err := svc.CreateUser(ctx, "admin", "alice", "Alice", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.GrantCapability(ctx, "admin", u.ID, models.CapAdminAccess); err != nil {
		t.Fatalf("GrantCapability: %v", err)
	}
	// Idempotent: a second grant adds no duplicate and no audit entry.
	if err := svc.GrantCapability(ctx, "admin", u.ID, models.CapAdminAccess); err != nil {
		t.Fatal(err)
	}

	snap, _ := store.ReadSnapshot(ctx)
	got := snap.UserByID(u.ID)
	if !got.HasCapability(models.CapAdminAccess) || len(got.Capabilities) != 1 {
		t.Fatalf("unexpected capabilities: %v", got.Capabilities)
	}
	grants := 0
	for _, rec := range snap.Audit {
		if rec.Action == models.ActionUserCapGrant {
			grants++
		}
	}
	if grants != 1 {
		t.Errorf("want 1 grant audit record, got %d", grants)
	}

	if err := svc.RevokeCapability(ctx, "admin", u.ID, models.CapAdminAccess); err != nil {
		t.Fatalf("RevokeCapability: %v", err)
	}
	snap, _ = store.ReadSnapshot(ctx)
	if snap.UserByID(u.ID).HasCapability(models.CapAdminAccess) {
		t.Error("capability still present after revoke")
	}
	if err := svc.GrantCapability(ctx, "admin", "missing", models.CapAdminAccess); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	u, err := svc.CreateUser(ctx, "admin", "alice", "Alice", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	parent, err := svc.CreateGroup(ctx, "admin", "team")
	if err != nil {
		t.Fatal(err)
	}
	child, err := svc.CreateGroup(ctx, "admin", "subteam")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.AddGroupMember(ctx, "admin", child.ID, u.ID); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}
	if err := svc.AddSubgroup(ctx, "admin", parent.ID, child.ID); err != nil {
		t.Fatalf("AddSubgroup: %v", err)
	}
	if err := svc.AddSubgroup(ctx, "admin", child.ID, parent.ID); !errors.Is(err, groups.ErrWouldCreateCycle) {
		t.Fatalf("want ErrWouldCreateCycle, got %v", err)
	}

	snap, _ := store.ReadSnapshot(ctx)
	if got := groups.ExpandUsers(snap, parent.ID); len(got) != 1 || got[0] != u.ID {
		t.Errorf("ExpandUsers(parent) = %v", got)
	}

	if err := svc.RemoveGroupMember(ctx, "admin", child.ID, u.ID); err != nil {
		t.Fatal(err)
	}
	snap, _ = store.ReadSnapshot(ctx)
	if got := groups.ExpandUsers(snap, parent.ID); len(got) != 0 {
		t.Errorf("ExpandUsers after removal = %v", got)
	}

	if err := svc.RemoveSubgroup(ctx, "admin", parent.ID, child.ID); err != nil {
		t.Fatalf("RemoveSubgroup: %v", err)
	}
	if err := svc.RemoveSubgroup(ctx, "admin", parent.ID, child.ID); !errors.Is(err, groups.ErrEdgeNotFound) {
		t.Fatalf("want ErrEdgeNotFound, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.EnsureAdmin(ctx, "admin", "changeme")
	if err != nil || !created {
		t.Fatalf("EnsureAdmin = (%v, %v), want created", created, err)
	}
	snap, _ := store.ReadSnapshot(ctx)
	u := snap.UserByUsername("admin")
	if u == nil || !u.HasCapability(models.CapAdminAccess) {
		t.Fatalf("bootstrap admin missing capability: %+v", u)
	}

	again, err := svc.EnsureAdmin(ctx, "admin", "changeme")
	if err != nil || again {
		t.Fatalf("second EnsureAdmin = (%v, %v), want no-op", again, err)
	}
}
