// Package bootstrap seeds the customer repository from a JSON document.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// ErrInvalidSeed indicates a seed document that cannot be loaded.
var ErrInvalidSeed = errors.New("invalid seed")

// Repo provides the customer data access needed by the loader.
type Repo interface {
	Get(ctx context.Context, id string) (domain.Customer, error)
	SaveAll(ctx context.Context, cs []domain.Customer) ([]domain.Customer, error)
}

// LoadFile loads the seed document at path.
func LoadFile(ctx context.Context, path string, repo Repo) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	return Load(ctx, f, repo)
}

// Load parses an array of customers with nested accounts and stores the
// customers that are not stored yet in one SaveAll. Stored customers are left
// untouched so a restart keeps their balances. It returns the number of
// inserted customers.
func Load(ctx context.Context, r io.Reader, repo Repo) (int, error) {
	l := zerolog.Ctx(ctx)

	var customers []domain.Customer
	if err := json.NewDecoder(r).Decode(&customers); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	if err := validate(customers); err != nil {
		return 0, err
	}

	pending := make([]domain.Customer, 0, len(customers))

	for _, c := range customers {
		_, err := repo.Get(ctx, c.ID)

		switch {
		case err == nil:
			l.Debug().Str("customer_id", c.ID).Msg("customer already stored, skipping")
			continue
		case errors.Is(err, domain.ErrRecordNotFound):
		default:
			return 0, fmt.Errorf("lookup customer %s: %w", c.ID, err)
		}

		c.Version = 0
		pending = append(pending, c)
	}

	if len(pending) == 0 {
		return 0, nil
	}

	if _, err := repo.SaveAll(ctx, pending); err != nil {
		return 0, fmt.Errorf("save customers: %w", err)
	}

	l.Info().Int("customers", len(pending)).Msg("seed loaded")

	return len(pending), nil
}

func validate(customers []domain.Customer) error {
	customerIDs := make(map[string]struct{}, len(customers))
	accountIDs := make(map[string]string)

	for i, c := range customers {
		if c.ID == "" {
			return fmt.Errorf("%w: customer #%d has no id", ErrInvalidSeed, i)
		}

		if _, ok := customerIDs[c.ID]; ok {
			return fmt.Errorf("%w: duplicate customer id %s", ErrInvalidSeed, c.ID)
		}

		customerIDs[c.ID] = struct{}{}

		for _, a := range c.AccountList() {
			if a.ID == "" {
				return fmt.Errorf("%w: customer %s has an account without id", ErrInvalidSeed, c.ID)
			}

			if owner, ok := accountIDs[a.ID]; ok {
				return fmt.Errorf("%w: account %s owned by %s and %s", ErrInvalidSeed, a.ID, owner, c.ID)
			}

			accountIDs[a.ID] = c.ID

			if a.CurrAmount.IsNegative() {
				return fmt.Errorf("%w: %v", ErrInvalidSeed, &domain.NegativeValueError{Value: domain.PlainString(a.CurrAmount)})
			}
		}
	}

	return nil
}
