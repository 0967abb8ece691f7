// Package transferrepo manages repository layer of transfers.
package transferrepo

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/auditrepo"
	"github.com/go-petr/pet-ledger/internal/customerrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
)

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns transfer RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		conn: db,
	}
}

// Transfer persists the updated customers and the audit row of a transfer
// within a single db transaction.
//
// A stale customer version aborts the transaction with domain.ErrVersionConflict.
func (r *RepoPGS) Transfer(ctx context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	for _, c := range arg.Customers {
		if c.ID == "" {
			return result, domain.ErrRecordNotFound
		}
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, domain.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	customerRepo := customerrepo.NewTxRepoPGS(tx)
	auditRepo := auditrepo.NewTxRepoPGS(tx)

	// To avoid deadlocks lock customer rows in consistent id order
	order := make([]int, len(arg.Customers))
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(i, j int) bool {
		return arg.Customers[order[i]].ID < arg.Customers[order[j]].ID
	})

	result.Customers = make([]domain.Customer, len(arg.Customers))

	for _, i := range order {
		result.Customers[i], err = customerRepo.Save(ctx, arg.Customers[i])
		if err != nil {
			return domain.TransferTxResult{}, err
		}
	}

	result.Audit, err = auditRepo.Save(ctx, arg.Audit)
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferTxResult{}, domain.ErrInternal
	}

	return result, nil
}
