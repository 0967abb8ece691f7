package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Customer is an account holder and the sole owner of its accounts.
type Customer struct {
	ID       string
	Name     string
	Accounts map[string]Account
	// Version is the optimistic concurrency token; zero means not stored yet.
	Version int64
}

type customerJSON struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Accounts []Account `json:"accounts"`
	Version  int64     `json:"version,omitempty"`
}

// MarshalJSON encodes accounts as an array ordered by id.
func (c Customer) MarshalJSON() ([]byte, error) {
	return json.Marshal(customerJSON{
		ID:       c.ID,
		Name:     c.Name,
		Accounts: c.AccountList(),
		Version:  c.Version,
	})
}

// UnmarshalJSON decodes an accounts array, rejecting duplicate account ids.
func (c *Customer) UnmarshalJSON(b []byte) error {
	var raw customerJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	accounts := make(map[string]Account, len(raw.Accounts))
	for _, a := range raw.Accounts {
		if _, ok := accounts[a.ID]; ok {
			return fmt.Errorf("customer %s: duplicate account id %s", raw.ID, a.ID)
		}
		accounts[a.ID] = a
	}

	*c = Customer{
		ID:       raw.ID,
		Name:     raw.Name,
		Accounts: accounts,
		Version:  raw.Version,
	}

	return nil
}

// Account returns the owned account with the given id.
func (c Customer) Account(id string) (Account, bool) {
	a, ok := c.Accounts[id]
	return a, ok
}

// PutAccount replaces the account with the same id, or adds it.
//
// The accounts map is copied so snapshots handed out earlier stay untouched.
func (c *Customer) PutAccount(a Account) error {
	if a.CurrAmount.IsNegative() {
		return &NegativeValueError{Value: PlainString(a.CurrAmount)}
	}

	accounts := make(map[string]Account, len(c.Accounts)+1)
	for id, acc := range c.Accounts {
		accounts[id] = acc
	}

	accounts[a.ID] = a
	c.Accounts = accounts

	return nil
}

// AccountList returns the accounts ordered by id.
func (c Customer) AccountList() []Account {
	list := make([]Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		list = append(list, a)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list
}

// Clone returns a deep copy of the customer.
func (c Customer) Clone() Customer {
	accounts := make(map[string]Account, len(c.Accounts))
	for id, a := range c.Accounts {
		accounts[id] = a
	}

	c.Accounts = accounts

	return c
}
