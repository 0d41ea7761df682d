package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jusunglee/itrans/internal/db"
)

//go:embed schema.sql
var schemaSQL string

var _ db.Repository = (*Repository)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements db.Repository using PostgreSQL via pgx
type Repository struct {
	pool *pgxpool.Pool
	q    querier
}

// New creates a new PostgreSQL repository and applies the schema.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := db.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Repository{pool: pool, q: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// PoolStats returns connection pool statistics
func (r *Repository) PoolStats() *pgxpool.Stat {
	return r.pool.Stat()
}

func (r *Repository) WithTx(ctx context.Context, fn func(repo db.Repository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	// If fn() panics, the normal err-check rollback below won't run.
	// recover() catches the panic so we can roll back the tx (releasing the db connection), then re-panic.
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
	}()

	err = fn(&Repository{pool: r.pool, q: tx})
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Table methods

func (r *Repository) UpsertTable(ctx context.Context, arg db.UpsertTableParams) (db.StoredTable, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO itrans_tables (name, source, tsv, checksum)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			source = EXCLUDED.source,
			tsv = EXCLUDED.tsv,
			checksum = EXCLUDED.checksum,
			updated_at = now()
		RETURNING name, source, tsv, checksum, created_at, updated_at
	`, arg.Name, arg.Source, arg.TSV, arg.Checksum)
	return scanTable(row)
}

func (r *Repository) GetTable(ctx context.Context, name string) (db.StoredTable, error) {
	row := r.q.QueryRow(ctx, `
		SELECT name, source, tsv, checksum, created_at, updated_at
		FROM itrans_tables
		WHERE name = $1
	`, name)
	return scanTable(row)
}

func (r *Repository) ListTables(ctx context.Context) ([]db.StoredTable, error) {
	rows, err := r.q.Query(ctx, `
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
	tag, err := r.q.Exec(ctx, `DELETE FROM itrans_tables WHERE name = $1`, name)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Load history methods

func (r *Repository) CreateTableLoad(ctx context.Context, arg db.CreateTableLoadParams) (db.TableLoad, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO table_loads (table_name, source, checksum, status, error, languages)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, table_name, source, checksum, status, error, languages, created_at
	`, arg.TableName, arg.Source, arg.Checksum, arg.Status, toPgText(arg.Error.String, arg.Error.Valid), arg.Languages)
	return scanTableLoad(row)
}

func (r *Repository) ListTableLoads(ctx context.Context, arg db.ListTableLoadsParams) ([]db.TableLoad, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, table_name, source, checksum, status, error, languages, created_at
		FROM table_loads
		WHERE table_name = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
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
	tag, err := r.q.Exec(ctx, `DELETE FROM table_loads WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Helpers

func scanTable(row pgx.Row) (db.StoredTable, error) {
	var t db.StoredTable
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&t.Name, &t.Source, &t.TSV, &t.Checksum, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.StoredTable{}, db.ErrNotFound
	}
	if err != nil {
		return db.StoredTable{}, err
	}
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return t, nil
}

func scanTableLoad(row pgx.Row) (db.TableLoad, error) {
	var l db.TableLoad
	var errText pgtype.Text
	var createdAt pgtype.Timestamptz
	err := row.Scan(&l.ID, &l.TableName, &l.Source, &l.Checksum, &l.Status, &errText, &l.Languages, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.TableLoad{}, db.ErrNotFound
	}
	if err != nil {
		return db.TableLoad{}, err
	}
	l.Error.String, l.Error.Valid = errText.String, errText.Valid
	l.CreatedAt = createdAt.Time
	return l, nil
}

func toPgText(s string, valid bool) pgtype.Text {
	return pgtype.Text{String: s, Valid: valid}
}
