package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	ErrCreateTable = errors.New("create table failed")
	ErrInsert      = errors.New("insert failed")
)

// TableStore writes a decoded CSV into one relational table.
type TableStore struct {
	db *sql.DB
}

func NewTableStore(db *sql.DB) *TableStore {
	return &TableStore{db: db}
}

// CreateTable issues the schema's CREATE TABLE IF NOT EXISTS.
func (ts *TableStore) CreateTable(ctx context.Context, schema TableSchema) error {
	if _, err := ts.db.ExecContext(ctx, schema.CreateTableSQL()); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateTable, err)
	}
	return nil
}

// InsertAll inserts every row inside one transaction. Either all rows are
// committed or none are.
func (ts *TableStore) InsertAll(ctx context.Context, schema TableSchema, rows [][]string) (n int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrInsert, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				multierr.AppendInto(&err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, schema.InsertSQL())
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %w", ErrInsert, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(stmt))

	for i, row := range rows {
		values, err := schema.Convert(row)
		if err != nil {
			return 0, fmt.Errorf("%w: row %d: %w", ErrInsert, i+1, err)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("%w: row %d: %w", ErrInsert, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrInsert, err)
	}
	return len(rows), nil
}

// Count reports the rows currently in table.
func (ts *TableStore) Count(ctx context.Context, table string) (int, error) {
	var n int
	err := ts.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n)
	return n, err
}
