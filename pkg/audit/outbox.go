package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// outboxSchema is applied at startup. The table survives broker outages;
// rows are marked rather than deleted so a delivery audit stays possible.
const outboxSchema = `
CREATE TABLE IF NOT EXISTS audit_outbox (
	id           UUID PRIMARY KEY,
	action       TEXT        NOT NULL,
	category     TEXT        NOT NULL,
	tags         TEXT[]      NOT NULL DEFAULT '{}',
	payload      JSONB       NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS audit_outbox_pending_idx
	ON audit_outbox (created_at) WHERE published_at IS NULL;
`

// OutboxStore persists events to Postgres before they reach the broker.
// Emitters write here inside their own request; the outbox worker moves rows
// to Kafka afterwards. A broker outage then delays the trail instead of
// losing it.
type OutboxStore struct {
	db *sql.DB
}

// NewOutboxStore wraps an open database handle. The caller owns the handle's
// lifecycle.
func NewOutboxStore(db *sql.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

// EnsureSchema creates the outbox table when it does not exist yet.
func (s *OutboxStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, outboxSchema); err != nil {
		return fmt.Errorf("audit: ensure outbox schema: %w", err)
	}
	return nil
}

// Publish inserts the event as a pending outbox row.
func (s *OutboxStore) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal outbox payload: %w", err)
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		id = uuid.New()
	}

	var tags []string
	if event.CountryCode != "" {
		tags = append(tags, "country:"+event.CountryCode)
	}
	if event.Provider != "" {
		tags = append(tags, "provider:"+event.Provider)
	}

	const query = `
		INSERT INTO audit_outbox (id, action, category, tags, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		id,
		string(event.Action),
		string(event.Category),
		pq.Array(tags),
		payload,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("audit: insert outbox row: %w", err)
	}
	return nil
}

// OutboxEntry is one pending row picked for delivery.
type OutboxEntry struct {
	ID    uuid.UUID
	Event Event
}

// PickBatch returns up to limit pending events, oldest first.
func (s *OutboxStore) PickBatch(ctx context.Context, limit int) ([]OutboxEntry, error) {
	const query = `
		SELECT id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			entry   OutboxEntry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &payload); err != nil {
			return nil, fmt.Errorf("audit: scan outbox row: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Event); err != nil {
			return nil, fmt.Errorf("audit: decode outbox payload %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given rows as delivered.
func (s *OutboxStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2)`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("audit: mark outbox published: %w", err)
	}
	return nil
}

// PendingCount reports how many rows still await delivery.
func (s *OutboxStore) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM audit_outbox WHERE published_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit: count pending outbox rows: %w", err)
	}
	return n, nil
}
