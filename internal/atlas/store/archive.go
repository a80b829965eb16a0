package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"corpatlas/contracts/company"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS company_snapshots (
	id               BIGSERIAL PRIMARY KEY,
	country_code     TEXT        NOT NULL,
	identifier_type  TEXT        NOT NULL,
	identifier_value TEXT        NOT NULL,
	provider         TEXT        NOT NULL,
	payload          JSONB       NOT NULL,
	fetched_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS company_snapshots_key_idx
	ON company_snapshots (country_code, identifier_type, identifier_value, fetched_at DESC);
`

// SnapshotArchive keeps every fresh provider payload in Postgres. Rows are
// append-only; a correction at the source becomes a new row, never an
// update, so the history of what a provider said remains reconstructible.
type SnapshotArchive struct {
	pool *pgxpool.Pool
}

// NewSnapshotArchive connects to Postgres and ensures the snapshot table
// exists.
func NewSnapshotArchive(ctx context.Context, dsn string) (*SnapshotArchive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	a := &SnapshotArchive{pool: pool}
	if err := a.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// NewSnapshotArchiveFromPool wraps an existing pool. The caller owns the
// pool's lifecycle and schema.
func NewSnapshotArchiveFromPool(pool *pgxpool.Pool) *SnapshotArchive {
	return &SnapshotArchive{pool: pool}
}

// EnsureSchema creates the snapshot table and index when absent.
func (a *SnapshotArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, archiveSchema); err != nil {
		return fmt.Errorf("store: ensure snapshot schema: %w", err)
	}
	return nil
}

// Save appends one snapshot row for key.
func (a *SnapshotArchive) Save(ctx context.Context, key Key, record *company.Record) error {
	if record == nil {
		return errors.New("store: nil record")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	fetchedAt := record.Source.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO company_snapshots
			(country_code, identifier_type, identifier_value, provider, payload, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		key.CountryCode, string(key.Type), key.Value, record.Source.Provider, payload, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot stored for key.
func (a *SnapshotArchive) Latest(ctx context.Context, key Key) (*company.Record, error) {
	var payload []byte
	err := a.pool.QueryRow(ctx, `
		SELECT payload FROM company_snapshots
		WHERE country_code = $1 AND identifier_type = $2 AND identifier_value = $3
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1`,
		key.CountryCode, string(key.Type), key.Value,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: query snapshot: %w", err)
	}
	var record company.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return &record, nil
}

// Count reports how many snapshots exist for key.
func (a *SnapshotArchive) Count(ctx context.Context, key Key) (int, error) {
	var n int
	err := a.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM company_snapshots
		WHERE country_code = $1 AND identifier_type = $2 AND identifier_value = $3`,
		key.CountryCode, string(key.Type), key.Value,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count snapshots: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (a *SnapshotArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close releases the underlying pool.
func (a *SnapshotArchive) Close() {
	a.pool.Close()
}
