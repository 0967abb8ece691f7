// Package auditrepo manages repository layer of transfer audits.
package auditrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

// RepoPGS facilitates transfer audit repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns audit RepoPGS running inside an existing transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns audit RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const columns = `id, seq, from_account, to_account, to_user_id, amount, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAudit(row scanner) (domain.TransferAudit, error) {
	var a domain.TransferAudit

	err := row.Scan(
		&a.ID,
		&a.Seq,
		&a.FromAccount,
		&a.ToAccount,
		&a.ToUserID,
		&a.Amount,
		&a.CreatedAt,
	)

	return a, err
}

const getQuery = `SELECT ` + columns + ` FROM transfer_audits WHERE id = $1`

// Get returns the audit row with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.TransferAudit, error) {
	a, err := scanAudit(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, domain.ErrRecordNotFound
		}

		zerolog.Ctx(ctx).Error().Err(err).Send()

		return a, domain.ErrInternal
	}

	return a, nil
}

const createQuery = `
INSERT INTO
	transfer_audits (id, from_account, to_account, to_user_id, amount, created_at)
VALUES
	($1, $2, $3, $4, $5, COALESCE($6, now()))
RETURNING ` + columns

// Save appends the audit row. The id is generated when empty, the sequence
// and the creation time are assigned by the database.
func (r *RepoPGS) Save(ctx context.Context, a domain.TransferAudit) (domain.TransferAudit, error) {
	l := zerolog.Ctx(ctx)

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	createdAt := sql.NullTime{Time: a.CreatedAt, Valid: !a.CreatedAt.IsZero()}

	saved, err := scanAudit(r.db.QueryRowContext(ctx, createQuery,
		a.ID,
		a.FromAccount,
		a.ToAccount,
		a.ToUserID,
		a.Amount,
		createdAt,
	))
	if err != nil {
		l.Error().Err(err).Msgf("Save(ctx context.Context, %+v)", a)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "transfer_audits_amount_check" {
			return domain.TransferAudit{}, &domain.NegativeValueError{Value: domain.PlainString(a.Amount)}
		}

		return domain.TransferAudit{}, domain.ErrInternal
	}

	return saved, nil
}

// SaveAll appends all audit rows in order, or none of them.
func (r *RepoPGS) SaveAll(ctx context.Context, as []domain.TransferAudit) ([]domain.TransferAudit, error) {
	l := zerolog.Ctx(ctx)

	repo := r

	var tx *sql.Tx

	if r.conn != nil {
		var err error

		tx, err = r.conn.BeginTx(ctx, nil)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, domain.ErrInternal
		}

		defer func() {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				l.Error().Err(err).Send()
			}
		}()

		repo = NewTxRepoPGS(tx)
	}

	saved := make([]domain.TransferAudit, 0, len(as))

	for _, a := range as {
		s, err := repo.Save(ctx, a)
		if err != nil {
			return nil, err
		}

		saved = append(saved, s)
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			l.Error().Err(err).Send()
			return nil, domain.ErrInternal
		}
	}

	return saved, nil
}

const listQuery = `SELECT ` + columns + ` FROM transfer_audits ORDER BY seq`

// List returns all audit rows in chronological order.
func (r *RepoPGS) List(ctx context.Context) ([]domain.TransferAudit, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrInternal
	}
	defer rows.Close()

	items := []domain.TransferAudit{}

	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, domain.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrInternal
	}

	return items, nil
}

// DeleteAll removes every audit row.
func (r *RepoPGS) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transfer_audits`); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return domain.ErrInternal
	}

	return nil
}
