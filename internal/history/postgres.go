// internal/history/postgres.go
package history

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"medsearch-service/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if table == "" {
		table = "medication_searches"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid history table name %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	search_type TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_created_at_idx ON %[1]s (created_at DESC)`, s.table)

	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, q models.Query) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (id, query, search_type, created_at) VALUES ($1, $2, $3, $4)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, q.ID, q.Text, string(q.Category), q.Timestamp.UTC()); err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindSorted(ctx context.Context, limit int) ([]models.Query, error) {
	stmt := fmt.Sprintf(`SELECT id, query, search_type, created_at FROM %s ORDER BY created_at DESC LIMIT $1`, s.table)
	rows, err := s.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]models.Query, 0, limit)
	for rows.Next() {
		var (
			q        models.Query
			category string
		)
		if err := rows.Scan(&q.ID, &q.Text, &category, &q.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		q.Category = models.Category(category)
		q.Timestamp = q.Timestamp.UTC()
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Name() string { return "postgres" }
