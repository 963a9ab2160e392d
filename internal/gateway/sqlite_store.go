package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"invoice-reconciler/internal/domain"
	"invoice-reconciler/internal/usecase"
)

// batchSize is the upstream batch-write ceiling. Batches are written
// sequentially; the first failed batch aborts the rest of the call.
const batchSize = 25

// SQLiteStore persists raw records and match results keyed by
// (record type, identity, period). Keys never involve wall-clock time, so
// re-running a period overwrites prior rows instead of duplicating them.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			pk        TEXT NOT NULL,
			sk        TEXT NOT NULL,
			type      TEXT NOT NULL,
			month_key TEXT NOT NULL,
			data      TEXT NOT NULL,
			PRIMARY KEY (pk, sk)
		);

		CREATE INDEX IF NOT EXISTS idx_records_month ON records(month_key, pk);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveRecords upserts all records for the period in batches of 25. Each batch
// is one transaction; a failed batch aborts the remaining batches.
func (s *SQLiteStore) SaveRecords(ctx context.Context, period domain.Period, records []usecase.StoredRecord) error {
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.writeBatch(ctx, period, records[start:end]); err != nil {
			return fmt.Errorf("batch starting at %d: %w", start, err)
		}
	}
	return nil
}

func (s *SQLiteStore) writeBatch(ctx context.Context, period domain.Period, batch []usecase.StoredRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (pk, sk, type, month_key, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pk, sk) DO UPDATE SET data = excluded.data, type = excluded.type
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	monthKey := "MONTH#" + period.Key()
	for _, rec := range batch {
		data, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("marshal %s#%s: %w", rec.Type, rec.Identity, err)
		}
		pk := rec.Type + "#" + rec.Identity
		if _, err := stmt.ExecContext(ctx, pk, period.Key(), rec.Type, monthKey, string(data)); err != nil {
			return fmt.Errorf("upsert %s: %w", pk, err)
		}
	}
	return tx.Commit()
}

// RecordsForPeriod returns the raw JSON of every stored record for a period,
// keyed by partition key. Used by audit tooling and tests.
func (s *SQLiteStore) RecordsForPeriod(ctx context.Context, period domain.Period) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pk, data FROM records WHERE month_key = ? ORDER BY pk`,
		"MONTH#"+period.Key())
	if err != nil {
		return nil, fmt.Errorf("query period records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var pk, data string
		if err := rows.Scan(&pk, &data); err != nil {
			return nil, err
		}
		out[pk] = json.RawMessage(data)
	}
	return out, rows.Err()
}
