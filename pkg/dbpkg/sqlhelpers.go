// Package dbpkg provides helpers to make db initialization and testing easier.
package dbpkg

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"
)

// Connection pool limits applied by Setup. Transfers hold one connection per
// transaction, so the pool bounds concurrent transfers.
const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// SQLInterface provides necessary db methods to perform queries.
// It is satisfied by both *sql.DB and *sql.Tx.
type SQLInterface interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Setup opens a pooled connection with database and checks it is reachable.
func Setup(ctx context.Context, driver, source string) (*sql.DB, error) {
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}

// Migrate applies the schema file at path. The file must be idempotent so it
// can run on every start.
func Migrate(ctx context.Context, db SQLInterface, path string) error {
	schema, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("apply schema %s: %w", path, err)
	}

	return nil
}

// SetupTX sets up a database transaction to be used in tests.
// The schema at schemaPath, if given, is applied before the transaction
// begins. Once the test is done the transaction is rolled back.
func SetupTX(t *testing.T, driver, source, schemaPath string) *sql.Tx {
	t.Helper()

	ctx := context.Background()

	db, err := Setup(ctx, driver, source)
	if err != nil {
		t.Fatalf("Setup(%v) failed: %v", driver, err)
	}

	if schemaPath != "" {
		if err := Migrate(ctx, db, schemaPath); err != nil {
			t.Fatalf("Migrate(%v) failed: %v", schemaPath, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("db.BeginTx() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}
