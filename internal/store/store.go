// Package store persists parsed tables in PostgreSQL.
//
// Each imported table becomes a dataset: one metadata row plus one
// dataset_rows row per record, the record's values kept as a text
// array in header order. Bulk loading uses the COPY protocol.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ipoole/tabular/internal/tabular"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Dataset describes one stored table.
type Dataset struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	FieldNames []string  `json:"fieldNames"`
	RowCount   int       `json:"rowCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store provides dataset persistence over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id          uuid PRIMARY KEY,
			name        text NOT NULL,
			field_names text[] NOT NULL,
			row_count   integer NOT NULL,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS dataset_rows (
			dataset_id  uuid NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			line_number integer NOT NULL,
			fields      text[] NOT NULL,
			PRIMARY KEY (dataset_id, line_number)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveTable stores a parsed table as a new dataset and returns its
// metadata. Rows are bulk-loaded with COPY inside a single transaction,
// so a failure leaves nothing behind.
func (s *Store) SaveTable(ctx context.Context, name string, t *tabular.Table) (*Dataset, error) {
	ds := &Dataset{
		ID:         uuid.New(),
		Name:       name,
		FieldNames: t.Schema.Names(),
		RowCount:   t.Len(),
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO datasets (id, name, field_names, row_count, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ds.ID, ds.Name, ds.FieldNames, ds.RowCount, ds.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert dataset: %w", err)
	}

	if t.Len() > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"dataset_rows"},
			[]string{"dataset_id", "line_number", "fields"},
			newRowSource(ds.ID, t.Records))
		if err != nil {
			return nil, fmt.Errorf("copy rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return ds, nil
}

// GetDataset returns the metadata for one dataset.
func (s *Store) GetDataset(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	return getDataset(ctx, s.pool, id)
}

func getDataset(ctx context.Context, db DBTX, id uuid.UUID) (*Dataset, error) {
	ds := &Dataset{}
	err := db.QueryRow(ctx,
		`SELECT id, name, field_names, row_count, created_at
		 FROM datasets WHERE id = $1`, id).
		Scan(&ds.ID, &ds.Name, &ds.FieldNames, &ds.RowCount, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return ds, nil
}

// ListDatasets returns all datasets, newest first.
func (s *Store) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, field_names, row_count, created_at
		 FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.FieldNames, &ds.RowCount, &ds.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// LoadTable reconstructs a dataset's records as a tabular.Table, in
// original line order.
func (s *Store) LoadTable(ctx context.Context, id uuid.UUID) (*tabular.Table, error) {
	ds, err := getDataset(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT fields FROM dataset_rows
		 WHERE dataset_id = $1 ORDER BY line_number`, id)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	var data [][]string
	for rows.Next() {
		var fields []string
		if err := rows.Scan(&fields); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		data = append(data, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tabular.NewTable(ds.Name, ds.FieldNames, data)
}

// ColumnStats computes SUM, AVG, MIN, MAX and COUNT over one column of
// a dataset, in SQL, by casting the positional text value to float8.
// A value that cannot be cast fails the whole query; numeric
// interpretation is the caller's contract, not the store's.
func (s *Store) ColumnStats(ctx context.Context, id uuid.UUID, column string) (*tabular.ColumnAggregation, error) {
	ds, err := s.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	pos := -1
	for i, n := range ds.FieldNames {
		if strings.EqualFold(n, column) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("dataset %s: no such column %q", ds.Name, column)
	}

	// Postgres arrays are 1-based.
	var sum, avg, min, max *float64
	var count int64
	err = s.pool.QueryRow(ctx,
		`SELECT SUM(x), AVG(x), MIN(x), MAX(x), COUNT(x)
		 FROM (SELECT (fields[$2])::float8 AS x
		       FROM dataset_rows WHERE dataset_id = $1) t`,
		id, pos+1).
		Scan(&sum, &avg, &min, &max, &count)
	if err != nil {
		return nil, fmt.Errorf("aggregate column %q: %w", column, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("dataset %s: no records to aggregate", ds.Name)
	}

	return &tabular.ColumnAggregation{
		Column: column,
		Sum:    *sum,
		Avg:    *avg,
		Min:    *min,
		Max:    *max,
		Count:  count,
	}, nil
}

// DeleteDataset removes a dataset and its rows.
func (s *Store) DeleteDataset(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
