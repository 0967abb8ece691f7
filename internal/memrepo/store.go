// Package memrepo provides an in-memory repository layer for customers and
// transfer audits. It is used for local runs and tests.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Store holds customers and transfer audits behind a single lock so that a
// transfer is applied all-or-nothing.
type Store struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	audits    map[string]domain.TransferAudit
	seq       int64
	now       func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		audits:    make(map[string]domain.TransferAudit),
		now:       time.Now,
	}
}

// Customers returns the customer repository backed by the store.
func (s *Store) Customers() *CustomerRepo {
	return &CustomerRepo{store: s}
}

// Audits returns the transfer audit repository backed by the store.
func (s *Store) Audits() *AuditRepo {
	return &AuditRepo{store: s}
}

// Transfers returns the transfer repository backed by the store.
func (s *Store) Transfers() *TransferRepo {
	return &TransferRepo{store: s}
}

// checkCustomerLocked validates the version of c against the stored record.
func (s *Store) checkCustomerLocked(c domain.Customer) error {
	stored, ok := s.customers[c.ID]

	switch {
	case !ok && c.Version != 0:
		return domain.ErrVersionConflict
	case ok && stored.Version != c.Version:
		return domain.ErrVersionConflict
	}

	return nil
}

// putCustomerLocked stores a copy of c with the next version. The caller must
// have validated it with checkCustomerLocked.
func (s *Store) putCustomerLocked(c domain.Customer) domain.Customer {
	c = c.Clone()
	c.Version++
	s.customers[c.ID] = c

	return c.Clone()
}

func (s *Store) putAuditLocked(a domain.TransferAudit) domain.TransferAudit {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	s.seq++
	a.Seq = s.seq

	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	s.audits[a.ID] = a

	return a
}

// CustomerRepo facilitates customer repository layer logic in memory.
type CustomerRepo struct {
	store *Store
}

// Get returns the customer with the given id.
func (r *CustomerRepo) Get(_ context.Context, id string) (domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrRecordNotFound
	}

	return c.Clone(), nil
}

// Save upserts the customer if its version matches the stored one.
func (r *CustomerRepo) Save(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	saved, err := r.SaveAll(ctx, []domain.Customer{c})
	if err != nil {
		return domain.Customer{}, err
	}

	return saved[0], nil
}

// SaveAll upserts all customers or none of them.
func (r *CustomerRepo) SaveAll(_ context.Context, cs []domain.Customer) ([]domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cs = assignIDs(cs)

	for _, c := range cs {
		if err := r.store.checkCustomerLocked(c); err != nil {
			return nil, err
		}
	}

	saved := make([]domain.Customer, 0, len(cs))
	for _, c := range cs {
		saved = append(saved, r.store.putCustomerLocked(c))
	}

	return saved, nil
}

// List returns all customers ordered by id.
func (r *CustomerRepo) List(_ context.Context) ([]domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	items := make([]domain.Customer, 0, len(r.store.customers))
	for _, c := range r.store.customers {
		items = append(items, c.Clone())
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, nil
}

// DeleteAll removes every customer.
func (r *CustomerRepo) DeleteAll(_ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.customers = make(map[string]domain.Customer)

	return nil
}

func assignIDs(cs []domain.Customer) []domain.Customer {
	out := make([]domain.Customer, len(cs))
	for i, c := range cs {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		out[i] = c
	}

	return out
}

// AuditRepo facilitates transfer audit repository layer logic in memory.
type AuditRepo struct {
	store *Store
}

// Get returns the audit row with the given id.
func (r *AuditRepo) Get(_ context.Context, id string) (domain.TransferAudit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.audits[id]
	if !ok {
		return domain.TransferAudit{}, domain.ErrRecordNotFound
	}

	return a, nil
}

// Save appends the audit row, assigning id, sequence and creation time.
func (r *AuditRepo) Save(_ context.Context, a domain.TransferAudit) (domain.TransferAudit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.putAuditLocked(a), nil
}

// SaveAll appends all audit rows in order.
func (r *AuditRepo) SaveAll(_ context.Context, as []domain.TransferAudit) ([]domain.TransferAudit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	saved := make([]domain.TransferAudit, 0, len(as))
	for _, a := range as {
		saved = append(saved, r.store.putAuditLocked(a))
	}

	return saved, nil
}

// List returns all audit rows ordered by sequence.
func (r *AuditRepo) List(_ context.Context) ([]domain.TransferAudit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	items := make([]domain.TransferAudit, 0, len(r.store.audits))
	for _, a := range r.store.audits {
		items = append(items, a)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })

	return items, nil
}

// DeleteAll removes every audit row.
func (r *AuditRepo) DeleteAll(_ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.audits = make(map[string]domain.TransferAudit)

	return nil
}

// TransferRepo applies transfers against the store.
type TransferRepo struct {
	store *Store
}

// Transfer saves the customers and appends the audit row under one lock.
// Nothing is written when any customer version is stale.
func (r *TransferRepo) Transfer(_ context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result domain.TransferTxResult

	for _, c := range arg.Customers {
		if c.ID == "" {
			return result, domain.ErrRecordNotFound
		}

		if err := r.store.checkCustomerLocked(c); err != nil {
			return result, err
		}
	}

	for _, c := range arg.Customers {
		result.Customers = append(result.Customers, r.store.putCustomerLocked(c))
	}

	result.Audit = r.store.putAuditLocked(arg.Audit)

	return result, nil
}
