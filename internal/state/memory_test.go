package state

import (
	"context"
	"errors"
	"testing"

	"github.com/org/svnportal/pkg/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snap, err := store.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	snap.Users = append(snap.Users, models.User{ID: "u1", Username: "alice", Active: true})
	if err := store.WriteSnapshot(ctx, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	again, err := store.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(again.Users) != 1 || again.Users[0].ID != "u1" {
		t.Fatalf("unexpected users after round trip: %+v", again.Users)
	}
	if again.Version != 1 {
		t.Errorf("version = %d, want 1", again.Version)
	}
}

func TestMemoryStoreDetectsConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, _ := store.ReadSnapshot(ctx)
	b, _ := store.ReadSnapshot(ctx)

	a.Groups = append(a.Groups, models.Group{ID: "g1", Name: "first"})
	if err := store.WriteSnapshot(ctx, a); err != nil {
		t.Fatalf("first write: %v", err)
	}

	b.Groups = append(b.Groups, models.Group{ID: "g2", Name: "second"})
	if err := store.WriteSnapshot(ctx, b); !errors.Is(err, ErrSnapshotConflict) {
		t.Fatalf("second write: want ErrSnapshotConflict, got %v", err)
	}

	cur, _ := store.ReadSnapshot(ctx)
	if len(cur.Groups) != 1 || cur.Groups[0].ID != "g1" {
		t.Fatalf("first write lost: %+v", cur.Groups)
	}
}

func TestApplyRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Interleave a competing writer into the first mutate call.
	calls := 0
	_, err := Apply(ctx, store, func(snap *models.Snapshot) error {
		calls++
		if calls == 1 {
			other, _ := store.ReadSnapshot(ctx)
			other.Groups = append(other.Groups, models.Group{ID: "racer", Name: "racer"})
			if err := store.WriteSnapshot(ctx, other); err != nil {
				t.Fatalf("competing write: %v", err)
			}
		}
		snap.Groups = append(snap.Groups, models.Group{ID: "mine", Name: "mine"})
		return nil
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if calls != 2 {
		t.Errorf("mutate called %d times, want 2 (one retry)", calls)
	}

	cur, _ := store.ReadSnapshot(ctx)
	if len(cur.Groups) != 2 {
		t.Fatalf("both writes must survive, got %+v", cur.Groups)
	}
}

func TestApplyAbortsOnMutateError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	wantErr := errors.New("validation failed")
	if _, err := Apply(ctx, store, func(*models.Snapshot) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("want mutate error back, got %v", err)
	}
	cur, _ := store.ReadSnapshot(ctx)
	if cur.Version != 0 {
		t.Errorf("aborted mutate must not commit, version = %d", cur.Version)
	}
}
