// Package customerrepo manages repository layer of customers.
package customerrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

// RepoPGS facilitates customer repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns customer RepoPGS running inside an existing transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns customer RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (domain.Customer, error) {
	var (
		c        domain.Customer
		accounts []byte
	)

	if err := row.Scan(&c.ID, &c.Name, &accounts, &c.Version); err != nil {
		return domain.Customer{}, err
	}

	var list []domain.Account
	if err := json.Unmarshal(accounts, &list); err != nil {
		return domain.Customer{}, err
	}

	c.Accounts = make(map[string]domain.Account, len(list))
	for _, a := range list {
		c.Accounts[a.ID] = a
	}

	return c, nil
}

const getQuery = `
SELECT
	id, name, accounts, version
FROM customers
WHERE id = $1
`

// Get returns the customer with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Customer, error) {
	l := zerolog.Ctx(ctx)

	c, err := scanCustomer(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, domain.ErrRecordNotFound
		}

		l.Error().Err(err).Send()

		return c, domain.ErrInternal
	}

	return c, nil
}

const insertQuery = `
INSERT INTO
	customers (id, name, accounts, version)
VALUES
	($1, $2, $3, 1)
ON CONFLICT (id) DO NOTHING
RETURNING id, name, accounts, version
`

const updateQuery = `
UPDATE customers
SET name = $2, accounts = $3, version = version + 1
WHERE id = $1 AND version = $4
RETURNING id, name, accounts, version
`

// Save inserts a customer with version zero or updates a stored one whose
// version still matches. Any other case is a version conflict.
func (r *RepoPGS) Save(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	l := zerolog.Ctx(ctx)

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	accounts, err := json.Marshal(c.AccountList())
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Customer{}, domain.ErrInternal
	}

	var row *sql.Row
	if c.Version == 0 {
		row = r.db.QueryRowContext(ctx, insertQuery, c.ID, c.Name, accounts)
	} else {
		row = r.db.QueryRowContext(ctx, updateQuery, c.ID, c.Name, accounts, c.Version)
	}

	saved, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrVersionConflict
		}

		l.Error().Err(err).Str("customer_id", c.ID).Send()

		return domain.Customer{}, domain.ErrInternal
	}

	return saved, nil
}

// SaveAll saves all customers or none of them.
func (r *RepoPGS) SaveAll(ctx context.Context, cs []domain.Customer) ([]domain.Customer, error) {
	if r.conn == nil {
		return r.saveAll(ctx, cs)
	}

	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	saved, err := NewTxRepoPGS(tx).saveAll(ctx, cs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrInternal
	}

	return saved, nil
}

func (r *RepoPGS) saveAll(ctx context.Context, cs []domain.Customer) ([]domain.Customer, error) {
	saved := make([]domain.Customer, 0, len(cs))

	for _, c := range cs {
		s, err := r.Save(ctx, c)
		if err != nil {
			return nil, err
		}

		saved = append(saved, s)
	}

	return saved, nil
}

const listQuery = `
SELECT
	id, name, accounts, version
FROM customers
ORDER BY id
`

// List returns all customers ordered by id.
func (r *RepoPGS) List(ctx context.Context) ([]domain.Customer, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrInternal
	}
	defer rows.Close()

	items := []domain.Customer{}

	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, domain.ErrInternal
		}

		items = append(items, c)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrInternal
	}

	return items, nil
}

// DeleteAll removes every customer.
func (r *RepoPGS) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return domain.ErrInternal
	}

	return nil
}
