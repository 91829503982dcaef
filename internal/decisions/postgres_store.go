package decisions

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

// NewPostgresStore creates a PostgreSQL-backed decision log
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// InsertBatch bulk-inserts decisions in one statement.
func (p *PostgresStore) InsertBatch(ctx context.Context, ds []*Decision) error {
	if len(ds) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO decisions (id, player_id, churn_score, model_version, feature_timestamp, action, reason) VALUES `)

	args := make([]interface{}, 0, len(ds)*7)
	for i, d := range ds {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, d.ID, d.PlayerID, d.ChurnScore, d.ModelVersion, d.FeatureTimestamp, d.Action, d.Reason)
	}

	if _, err := p.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert decision batch (%d rows): %w", len(ds), err)
	}
	return nil
}

// ListRecent returns up to limit decisions, newest first. Decisions from
// one scoring cycle share a feature timestamp, so id breaks the tie to
// keep the order stable across calls.
func (p *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, player_id, churn_score, model_version, feature_timestamp, action, reason
		FROM decisions
		ORDER BY feature_timestamp DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Decision
	for rows.Next() {
		d := &Decision{}
		if err := rows.Scan(&d.ID, &d.PlayerID, &d.ChurnScore, &d.ModelVersion,
			&d.FeatureTimestamp, &d.Action, &d.Reason); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
