package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/qtc-mcp-server/internal/domain"
)

// Schema is the PostgreSQL DDL for the evaluations table. The embedded migrations in
// internal/database create the same table.
const Schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id TEXT PRIMARY KEY,
	formula TEXT NOT NULL,
	criterion TEXT NOT NULL,
	qt DOUBLE PRECISION NOT NULL,
	interval_rate DOUBLE PRECISION NOT NULL,
	type TEXT NOT NULL,
	units TEXT NOT NULL,
	sex TEXT NOT NULL DEFAULT 'unspecified',
	age INTEGER,
	qtc DOUBLE PRECISION,
	non_finite TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL,
	is_abnormal BOOLEAN NOT NULL DEFAULT FALSE,
	matched_rules TEXT NOT NULL DEFAULT '[]',
	request_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_severity ON evaluations(severity);
`

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the schema to already exist (created via migrations or EnsureSchema).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// EnsureSchema creates the evaluations table when migrations are not in use.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores a record, replacing any record with the same ID.
func (s *PostgresStore) Save(ctx context.Context, record *domain.EvaluationRecord) error {
	prepare(record)
	values, err := args(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO evaluations (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			formula = EXCLUDED.formula,
			criterion = EXCLUDED.criterion,
			qt = EXCLUDED.qt,
			interval_rate = EXCLUDED.interval_rate,
			type = EXCLUDED.type,
			units = EXCLUDED.units,
			sex = EXCLUDED.sex,
			age = EXCLUDED.age,
			qtc = EXCLUDED.qtc,
			non_finite = EXCLUDED.non_finite,
			severity = EXCLUDED.severity,
			is_abnormal = EXCLUDED.is_abnormal,
			matched_rules = EXCLUDED.matched_rules,
			request_id = EXCLUDED.request_id
		RETURNING created_at
	`

	if err := s.db.QueryRowContext(ctx, query, values...).Scan(&record.CreatedAt); err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return nil
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM evaluations WHERE id = $1`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return record, nil
}

// List returns records newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.EvaluationRecord, error) {
	query := `
		SELECT ` + columns + `
		FROM evaluations
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var result []*domain.EvaluationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, record)
	}

	return result, rows.Err()
}

// Count returns the total number of records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evaluations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

// Delete removes a record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM evaluations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return deleted(res, id)
}

// ExportJSON exports all records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports records from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
