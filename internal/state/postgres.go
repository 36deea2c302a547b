package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/svnportal/pkg/models"
)

// PostgresStore persists the snapshot as a single versioned JSONB document.
// The version column carries the compare-and-swap that serializes writers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pgxpool connection and returns a ready store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func (p *PostgresStore) ReadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	row := p.pool.QueryRow(ctx, `SELECT version, doc FROM snapshots WHERE id = 1`)
	var version int64
	var doc []byte
	if err := row.Scan(&version, &doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	snap.Version = version
	return &snap, nil
}

func (p *PostgresStore) WriteSnapshot(ctx context.Context, snap *models.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	row := p.pool.QueryRow(ctx,
		`UPDATE snapshots
		 SET doc = $1, version = version + 1, updated_at = NOW()
		 WHERE id = 1 AND version = $2
		 RETURNING version`,
		doc, snap.Version,
	)
	var newVersion int64
	if err := row.Scan(&newVersion); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSnapshotConflict
		}
		return fmt.Errorf("writing snapshot: %w", err)
	}
	snap.Version = newVersion
	return nil
}
