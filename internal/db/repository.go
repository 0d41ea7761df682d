package db

import (
	"context"
	"database/sql"
	"time"
)

// Load statuses recorded in table_loads.
const (
	LoadStatusOK     = "ok"
	LoadStatusFailed = "failed"
)

// StoredTable is a table document kept for the catalog
type StoredTable struct {
	Name      string
	Source    string
	TSV       string
	Checksum  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableLoad records one attempt to load a table document
type TableLoad struct {
	ID        int64
	TableName string
	Source    string
	Checksum  string
	Status    string
	Error     sql.NullString
	Languages int32
	CreatedAt time.Time
}

type UpsertTableParams struct {
	Name     string
	Source   string
	TSV      string
	Checksum string
}

type CreateTableLoadParams struct {
	TableName string
	Source    string
	Checksum  string
	Status    string
	Error     sql.NullString
	Languages int32
}

type ListTableLoadsParams struct {
	TableName string
	Limit     int32
}

// Repository defines the interface for database operations
type Repository interface {
	// Tables
	UpsertTable(ctx context.Context, arg UpsertTableParams) (StoredTable, error)
	GetTable(ctx context.Context, name string) (StoredTable, error)
	ListTables(ctx context.Context) ([]StoredTable, error)
	DeleteTable(ctx context.Context, name string) (int64, error)

	// Load history
	CreateTableLoad(ctx context.Context, arg CreateTableLoadParams) (TableLoad, error)
	ListTableLoads(ctx context.Context, arg ListTableLoadsParams) ([]TableLoad, error)

	// Retention/Cleanup
	DeleteOldTableLoads(ctx context.Context, before time.Time) (int64, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	// Lifecycle
	Close() error
}
