// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// SchemaPath is the ledger schema relative to a package two levels deep.
const SchemaPath = "../../configs/db/migration/000001_init_schema.up.sql"

// LoadConfig loads configs/app.env relative to a package two levels deep.
func LoadConfig(t *testing.T) configpkg.Config {
	t.Helper()

	config, err := configpkg.Load("../../configs")
	if err != nil {
		t.Fatalf(`configpkg.Load("../../configs") returned error: %v`, err)
	}

	return config
}

// SetupServer returns a postgres backed test server that cleans up database
// after each integration test.
func SetupServer(t *testing.T) *httpserver.Server {
	t.Helper()

	config := LoadConfig(t)
	config.StorageBackend = configpkg.StoragePostgres

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, nil, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, nil, logger, config) returned error: %v`, err)
	}

	return server
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema='public' AND table_name <> 'schema_migrations';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with a migrated database for testing and then
// cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	ctx := context.Background()

	db, err := dbpkg.Setup(ctx, driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	if err := dbpkg.Migrate(ctx, db, SchemaPath); err != nil {
		t.Fatalf("db migration failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// Saver stores customers.
type Saver interface {
	Save(ctx context.Context, c domain.Customer) (domain.Customer, error)
}

// SeedCustomer stores a random customer owning one account with the given balance.
func SeedCustomer(t *testing.T, repo Saver, balance string) (domain.Customer, domain.Account) {
	t.Helper()

	amount, err := decimal.NewFromString(balance)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q) returned error: %v", balance, err)
	}

	account := domain.Account{
		ID:         randompkg.String(12),
		Type:       randompkg.AccountType(),
		CurrAmount: amount,
	}

	c := domain.Customer{ID: randompkg.UserID(), Name: randompkg.Owner()}
	if err := c.PutAccount(account); err != nil {
		t.Fatalf("c.PutAccount(%+v) returned error: %v", account, err)
	}

	saved, err := repo.Save(context.Background(), c)
	if err != nil {
		t.Fatalf("repo.Save(%+v) returned error: %v", c, err)
	}

	return saved, account
}
