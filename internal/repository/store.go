package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// SQLStore implements Store on top of database/sql. The same code serves
// SQLite, MySQL and PostgreSQL; only the dialect differs.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	log.Printf("[SQLStore] Schema ready (%s)", d.name)
	return &SQLStore{db: db, d: d}, nil
}

// Dialect returns the backend name: sqlite, mysql or postgres.
func (s *SQLStore) Dialect() string {
	return s.d.name
}

// withTx runs fn inside a transaction and commits if fn returns nil.
// Everything inside fn must go through tx: SQLite runs with a single
// connection and would deadlock on s.db.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insert runs an INSERT and returns the generated id.
func (s *SQLStore) insert(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	if s.d.returningID {
		var id int64
		err := tx.QueryRowContext(ctx, s.d.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}

	res, err := tx.ExecContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// exists reports whether query returns at least one row.
func (s *SQLStore) exists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, s.d.rebind(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mapWriteError turns unique-constraint violations into ErrConflict.
func (s *SQLStore) mapWriteError(err error, what string) error {
	if err == nil {
		return nil
	}
	if s.d.uniqueViolate(err) {
		return ErrConflict
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}

// Stats returns row counts per table.
func (s *SQLStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["backend"] = s.d.name

	for _, table := range []string{"client", "merchant", "product", "cart_line", "invitation"} {
		var count int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table+"_rows"] = count
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)
