// Package state owns snapshot persistence. Stores hand out consistent
// snapshot values and make writes appear atomic to readers; concurrent
// mutators are serialized with a compare-and-swap on the snapshot version.
package state

import (
	"context"
	"errors"

	"github.com/org/svnportal/pkg/models"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrSnapshotConflict is returned by WriteSnapshot when another writer
// committed first. Callers re-read and re-apply.
var ErrSnapshotConflict = errors.New("snapshot version conflict")

// Store is the persistence interface for portal state.
type Store interface {
	// ReadSnapshot returns a consistent snapshot. Callers own the value;
	// the store never mutates a snapshot it has handed out.
	ReadSnapshot(ctx context.Context) (*models.Snapshot, error)

	// WriteSnapshot atomically replaces the stored snapshot, provided
	// snap.Version still matches the stored version. On success the
	// snapshot's version is advanced in place.
	WriteSnapshot(ctx context.Context, snap *models.Snapshot) error

	Close()
}

// applyRetries bounds the CAS retry loop under writer contention.
const applyRetries = 5

// Apply runs a read-clone-mutate-commit cycle: it reads the current
// snapshot, applies mutate to a private clone, and commits the clone with a
// compare-and-swap, retrying a bounded number of times when another writer
// got there first. A mutate error aborts without writing anything.
func Apply(ctx context.Context, s Store, mutate func(*models.Snapshot) error) (*models.Snapshot, error) {
	for attempt := 0; attempt < applyRetries; attempt++ {
		snap, err := s.ReadSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		next := snap.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		err = s.WriteSnapshot(ctx, next)
		if errors.Is(err, ErrSnapshotConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, ErrSnapshotConflict
}
