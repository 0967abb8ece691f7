// Package ledgerservice manages business logic layer of accounts and transfers.
package ledgerservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// CustomerRepo provides customer data access needed by the ledger service.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type CustomerRepo interface {
	Get(ctx context.Context, id string) (domain.Customer, error)
	Save(ctx context.Context, c domain.Customer) (domain.Customer, error)
	SaveAll(ctx context.Context, cs []domain.Customer) ([]domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
	DeleteAll(ctx context.Context) error
}

// AuditRepo provides transfer audit data access needed by the ledger service.
type AuditRepo interface {
	Get(ctx context.Context, id string) (domain.TransferAudit, error)
	Save(ctx context.Context, a domain.TransferAudit) (domain.TransferAudit, error)
	SaveAll(ctx context.Context, as []domain.TransferAudit) ([]domain.TransferAudit, error)
	List(ctx context.Context) ([]domain.TransferAudit, error)
	DeleteAll(ctx context.Context) error
}

// TransferRepo persists the customers and the audit row of one transfer atomically.
type TransferRepo interface {
	Transfer(ctx context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error)
}

// DefaultMaxRetries bounds how many times a read-modify-write cycle is retried
// after a version conflict.
const DefaultMaxRetries = 3

// Option configures the Service.
type Option func(*Service)

// WithMaxRetries sets the number of retries after a version conflict.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithIDGenerator replaces the account id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// Service facilitates ledger service layer logic.
type Service struct {
	customers  CustomerRepo
	audits     AuditRepo
	transfers  TransferRepo
	maxRetries int
	newID      func() string
}

// New returns ledger service struct to manage account and transfer business logic.
func New(cr CustomerRepo, ar AuditRepo, tr TransferRepo, opts ...Option) *Service {
	s := &Service{
		customers:  cr,
		audits:     ar,
		transfers:  tr,
		maxRetries: DefaultMaxRetries,
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateAccount adds a new account with the requested type and initial amount
// to the customer and returns it with the generated id.
func (s *Service) CreateAccount(ctx context.Context, req domain.AccountPayload, userID string) (domain.AccountPayload, error) {
	l := zerolog.Ctx(ctx)

	if req.CurrAmount.IsNegative() {
		err := &domain.NegativeValueError{Value: domain.PlainString(req.CurrAmount)}
		l.Info().Err(err).Send()

		return domain.AccountPayload{}, err
	}

	accountID := s.newID()

	var created domain.Account

	err := s.retry(ctx, func() error {
		customer, err := s.customer(ctx, userID)
		if err != nil {
			return err
		}

		account := domain.Account{
			ID:         accountID,
			Type:       req.Type,
			CurrAmount: req.CurrAmount,
		}
		if err := customer.PutAccount(account); err != nil {
			return err
		}

		saved, err := s.customers.Save(ctx, customer)
		if err != nil {
			return err
		}

		if saved.ID == "" {
			return &domain.IntegrityError{Op: "create account", Reason: "empty return from save"}
		}

		acc, ok := saved.Account(accountID)
		if !ok {
			return &domain.IntegrityError{Op: "create account", Reason: "account not added"}
		}

		created = acc

		return nil
	})
	if err != nil {
		l.Info().Err(err).Str("user_id", userID).Send()
		return domain.AccountPayload{}, err
	}

	return created.Payload(), nil
}

// GetAccount returns the account only when it is owned by the given user.
func (s *Service) GetAccount(ctx context.Context, accountID, userID string) (domain.AccountPayload, error) {
	_, account, err := s.ownedAccount(ctx, accountID, userID)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		return domain.AccountPayload{}, err
	}

	return account.Payload(), nil
}

// Transfer moves req.Amount from req.FromAccount, owned by actingUserID, to
// req.ToAccount, owned by req.UserID, and records the audit row.
func (s *Service) Transfer(ctx context.Context, req domain.TransferPayload, actingUserID string) (domain.TransferPayload, error) {
	l := zerolog.Ctx(ctx)

	if req.Amount.IsNegative() {
		err := &domain.NegativeValueError{Value: domain.PlainString(req.Amount)}
		l.Info().Err(err).Send()

		return domain.TransferPayload{}, err
	}

	var audit domain.TransferAudit

	err := s.retry(ctx, func() error {
		arg, err := s.prepareTransfer(ctx, req, actingUserID)
		if err != nil {
			return err
		}

		result, err := s.transfers.Transfer(ctx, arg)
		if err != nil {
			return err
		}

		if len(result.Customers) != len(arg.Customers) || result.Audit.ID == "" {
			return &domain.IntegrityError{Op: "transfer", Reason: "unable to complete transfer"}
		}

		for _, c := range result.Customers {
			if c.ID == "" {
				return &domain.IntegrityError{Op: "transfer", Reason: "unable to complete transfer"}
			}
		}

		audit = result.Audit

		return nil
	})
	if err != nil {
		l.Info().Err(err).Str("user_id", actingUserID).Send()
		return domain.TransferPayload{}, err
	}

	return audit.Payload(), nil
}

// prepareTransfer resolves both accounts and computes the updated customer
// snapshots without writing anything.
func (s *Service) prepareTransfer(ctx context.Context, req domain.TransferPayload, actingUserID string) (domain.TransferTxParams, error) {
	var (
		fromCustomer, toCustomer domain.Customer
		fromAccount, toAccount   domain.Account
		fromErr, toErr           error
	)

	// Both lookups share the caller's ctx: a failed side must not cancel the other.
	var g errgroup.Group

	g.Go(func() error {
		fromCustomer, fromAccount, fromErr = s.ownedAccount(ctx, req.FromAccount, actingUserID)
		return fromErr
	})

	g.Go(func() error {
		toCustomer, toAccount, toErr = s.ownedAccount(ctx, req.ToAccount, req.UserID)
		return toErr
	})

	if err := g.Wait(); err != nil {
		// Report the source side first regardless of which lookup finished first.
		if fromErr != nil {
			return domain.TransferTxParams{}, fromErr
		}

		return domain.TransferTxParams{}, toErr
	}

	debited, err := fromAccount.Debit(req.Amount)
	if err != nil {
		return domain.TransferTxParams{}, err
	}

	if err := fromCustomer.PutAccount(debited); err != nil {
		return domain.TransferTxParams{}, err
	}

	customers := []domain.Customer{fromCustomer}

	if fromCustomer.ID == toCustomer.ID {
		// Both sides live in one record: credit the already debited snapshot.
		toAccount, _ = fromCustomer.Account(req.ToAccount)
		if err := fromCustomer.PutAccount(toAccount.Credit(req.Amount)); err != nil {
			return domain.TransferTxParams{}, err
		}

		customers[0] = fromCustomer
	} else {
		if err := toCustomer.PutAccount(toAccount.Credit(req.Amount)); err != nil {
			return domain.TransferTxParams{}, err
		}

		customers = append(customers, toCustomer)
	}

	return domain.TransferTxParams{
		Customers: customers,
		Audit: domain.TransferAudit{
			FromAccount: req.FromAccount,
			ToAccount:   req.ToAccount,
			ToUserID:    req.UserID,
			Amount:      req.Amount,
		},
	}, nil
}

// Transfers returns the transfers to or from the account in chronological
// order. The account must belong to the user.
func (s *Service) Transfers(ctx context.Context, accountID, userID string) ([]domain.TransferPayload, error) {
	l := zerolog.Ctx(ctx)

	if _, _, err := s.ownedAccount(ctx, accountID, userID); err != nil {
		l.Info().Err(err).Send()
		return nil, err
	}

	audits, err := s.audits.List(ctx)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, err
	}

	items := []domain.TransferPayload{}

	for _, a := range audits {
		if a.Involves(accountID) {
			items = append(items, a.Payload())
		}
	}

	return items, nil
}

func (s *Service) customer(ctx context.Context, userID string) (domain.Customer, error) {
	c, err := s.customers.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return c, &domain.UserNotFoundError{UserID: userID}
		}

		return c, err
	}

	return c, nil
}

// ownedAccount looks the account up inside the user's own record only.
func (s *Service) ownedAccount(ctx context.Context, accountID, userID string) (domain.Customer, domain.Account, error) {
	c, err := s.customer(ctx, userID)
	if err != nil {
		return c, domain.Account{}, err
	}

	a, ok := c.Account(accountID)
	if !ok {
		return c, a, &domain.AccountNotFoundError{AccountID: accountID, UserID: userID}
	}

	return c, a, nil
}

// retry runs fn again while it fails with a version conflict, up to maxRetries times.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	var err error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err = fn(); !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		zerolog.Ctx(ctx).Warn().Err(err).Int("attempt", attempt+1).Msg("retrying after version conflict")
	}

	return err
}
