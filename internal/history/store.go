// Package history stores evaluation records: durable stores (SQLite, PostgreSQL), a circuit
// breaker around them, and caches of recent results (in-process LRU, shared Redis).
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/qtc-mcp-server/internal/domain"
)

// Store defines the interface for evaluation history storage.
type Store interface {
	// Save stores a record, replacing any record with the same ID.
	Save(ctx context.Context, record *domain.EvaluationRecord) error

	// Get retrieves a record by ID. Missing records yield an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.EvaluationRecord, error)

	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.EvaluationRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by ID. Deleting an ID that is not stored yields an error
	// wrapping domain.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes every record as an Export document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON restores an Export document, skipping IDs that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version     string                     `json:"version"`
	ExportedAt  time.Time                  `json:"exported_at"`
	Count       int                        `json:"count"`
	Evaluations []*domain.EvaluationRecord `json:"evaluations"`
}

// exportVersion is written into every export document.
const exportVersion = "1.0"

// exportPageSize is the number of records read per List call while exporting.
var exportPageSize = 500

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	var all []*domain.EvaluationRecord
	for offset := 0; ; offset += exportPageSize {
		page, err := s.List(ctx, exportPageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list evaluations: %w", err)
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			break
		}
	}
	if all == nil {
		all = []*domain.EvaluationRecord{}
	}

	export := &Export{
		Version:     exportVersion,
		ExportedAt:  time.Now().UTC(),
		Count:       len(all),
		Evaluations: all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, record := range export.Evaluations {
		if record == nil || record.ID == "" {
			skipped++
			continue
		}

		_, err := s.Get(ctx, record.ID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := s.Save(ctx, record); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// notFound wraps domain.ErrNotFound with the missing ID.
func notFound(id string) error {
	return fmt.Errorf("evaluation %s: %w", id, domain.ErrNotFound)
}

// deleted maps a DELETE that touched no rows to notFound.
func deleted(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}
