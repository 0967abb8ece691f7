//go:build integration

package auditrepo_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/auditrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

var (
	dbDriver string
	dbSource string
	ctx      context.Context
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	logger := middleware.CreateLogger(config)
	ctx = logger.WithContext(context.Background())

	os.Exit(m.Run())
}

func randomAudit() domain.TransferAudit {
	return domain.TransferAudit{
		FromAccount: randompkg.String(10),
		ToAccount:   randompkg.String(10),
		ToUserID:    randompkg.UserID(),
		Amount:      randompkg.MoneyAmountBetween(1, 100),
	}
}

func TestSaveGetList(t *testing.T) {
	tx := dbpkg.SetupTX(t, dbDriver, dbSource, integrationtest.SchemaPath)
	repo := auditrepo.NewTxRepoPGS(tx)

	first, err := repo.Save(ctx, randomAudit())
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.NotZero(t, first.Seq)
	require.WithinDuration(t, time.Now(), first.CreatedAt, time.Minute)

	rest, err := repo.SaveAll(ctx, []domain.TransferAudit{randomAudit(), randomAudit()})
	require.NoError(t, err)
	require.Len(t, rest, 2)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first.FromAccount, got.FromAccount)
	require.True(t, first.Amount.Equal(got.Amount))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(list), 3)

	for i := 1; i < len(list); i++ {
		require.Less(t, list[i-1].Seq, list[i].Seq)
	}

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestSaveNegativeAmount(t *testing.T) {
	tx := dbpkg.SetupTX(t, dbDriver, dbSource, integrationtest.SchemaPath)
	repo := auditrepo.NewTxRepoPGS(tx)

	a := randomAudit()
	a.Amount = decimal.RequireFromString("-1.00")

	_, err := repo.Save(ctx, a)
	require.ErrorIs(t, err, domain.ErrNegativeValue)
	require.EqualError(t, err, "Negative value -1.00 not allowed here")
}
