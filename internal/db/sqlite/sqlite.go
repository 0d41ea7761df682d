package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jusunglee/itrans/internal/db"
)

//go:embed schema.sql
var schemaSQL string

var _ db.Repository = (*Repository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements db.Repository using SQLite
type Repository struct {
	db *sql.DB
	q  querier
}

// New creates a new SQLite repository
func New(ctx context.Context, dbPath string) (*Repository, error) {
	// Strip sqlite:// prefix if present
	dbPath = strings.TrimPrefix(dbPath, "sqlite://")

	sqliteDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		sqliteDB.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := sqliteDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := sqliteDB.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := sqliteDB.ExecContext(ctx, schemaSQL); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	slog.Debug("opened SQLite database", "path", dbPath)

	return &Repository{db: sqliteDB, q: sqliteDB}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) WithTx(ctx context.Context, fn func(repo db.Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Repository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Table methods

func (r *Repository) UpsertTable(ctx context.Context, arg db.UpsertTableParams) (db.StoredTable, error) {
	now := formatTime(time.Now())
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO itrans_tables (name, source, tsv, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			source = excluded.source,
			tsv = excluded.tsv,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`, arg.Name, arg.Source, arg.TSV, arg.Checksum, now, now)
	if err != nil {
		return db.StoredTable{}, err
	}
	return r.GetTable(ctx, arg.Name)
}

func (r *Repository) GetTable(ctx context.Context, name string) (db.StoredTable, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT name, source, tsv, checksum, created_at, updated_at
		FROM itrans_tables
		WHERE name = ?
	`, name)
	return scanTable(row)
}

func (r *Repository) ListTables(ctx context.Context) ([]db.StoredTable, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT name, source, tsv, checksum, created_at, updated_at
		FROM itrans_tables
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []db.StoredTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (r *Repository) DeleteTable(ctx context.Context, name string) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM itrans_tables WHERE name = ?`, name)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Load history methods

func (r *Repository) CreateTableLoad(ctx context.Context, arg db.CreateTableLoadParams) (db.TableLoad, error) {
	result, err := r.q.ExecContext(ctx, `
		INSERT INTO table_loads (table_name, source, checksum, status, error, languages, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, arg.TableName, arg.Source, arg.Checksum, arg.Status, arg.Error, arg.Languages, formatTime(time.Now()))
	if err != nil {
		return db.TableLoad{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return db.TableLoad{}, err
	}

	row := r.q.QueryRowContext(ctx, `
		SELECT id, table_name, source, checksum, status, error, languages, created_at
		FROM table_loads
		WHERE id = ?
	`, id)
	return scanTableLoad(row)
}

func (r *Repository) ListTableLoads(ctx context.Context, arg db.ListTableLoadsParams) ([]db.TableLoad, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, table_name, source, checksum, status, error, languages, created_at
		FROM table_loads
		WHERE table_name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, arg.TableName, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loads []db.TableLoad
	for rows.Next() {
		l, err := scanTableLoad(rows)
		if err != nil {
			return nil, err
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

func (r *Repository) DeleteOldTableLoads(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM table_loads WHERE created_at < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanTable(s scanner) (db.StoredTable, error) {
	var t db.StoredTable
	var createdAtStr, updatedAtStr string
	err := s.Scan(&t.Name, &t.Source, &t.TSV, &t.Checksum, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return db.StoredTable{}, db.ErrNotFound
	}
	if err != nil {
		return db.StoredTable{}, err
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
	return t, nil
}

func scanTableLoad(s scanner) (db.TableLoad, error) {
	var l db.TableLoad
	var createdAtStr string
	err := s.Scan(&l.ID, &l.TableName, &l.Source, &l.Checksum, &l.Status, &l.Error, &l.Languages, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return db.TableLoad{}, db.ErrNotFound
	}
	if err != nil {
		return db.TableLoad{}, err
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
	return l, nil
}

// formatTime writes UTC timestamps with a fixed width so they sort as text.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
