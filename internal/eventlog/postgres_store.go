package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed event log
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// InsertBatch bulk-inserts records in one statement. Conflicts on
// (run_id, player_id, event_ts) are skipped, making replays idempotent.
func (p *PostgresStore) InsertBatch(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO raw_events (run_id, player_id, event_type, payload, event_ts) VALUES `)

	args := make([]interface{}, 0, len(records)*5)
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, r.RunID, r.PlayerID, r.EventType, string(r.Payload), r.EventTS)
	}
	sb.WriteString(` ON CONFLICT (run_id, player_id, event_ts) DO NOTHING`)

	if _, err := p.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert raw event batch (%d rows): %w", len(records), err)
	}
	return nil
}

// Count returns the number of logged events for a run
func (p *PostgresStore) Count(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_events WHERE run_id = $1`, runID,
	).Scan(&n)
	return n, err
}
