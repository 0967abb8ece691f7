// Package domain provides definitions of all ledger entities.
package domain

import "github.com/shopspring/decimal"

// Account holds a typed balance owned by exactly one customer.
type Account struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	CurrAmount decimal.Decimal `json:"currAmount"`
}

// Debit returns a copy of the account with amount subtracted.
//
// It fails with NegativeValueError when the resulting balance would be negative.
func (a Account) Debit(amount decimal.Decimal) (Account, error) {
	balance := a.CurrAmount.Sub(amount)
	if balance.IsNegative() {
		return a, &NegativeValueError{Value: "transfer result"}
	}

	a.CurrAmount = balance

	return a, nil
}

// Credit returns a copy of the account with amount added.
func (a Account) Credit(amount decimal.Decimal) Account {
	a.CurrAmount = a.CurrAmount.Add(amount)
	return a
}

// Payload projects the account to its boundary representation.
func (a Account) Payload() AccountPayload {
	return AccountPayload{
		ID:         a.ID,
		Type:       a.Type,
		CurrAmount: a.CurrAmount,
	}
}

// AccountPayload is the externally visible projection of an account.
type AccountPayload struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	CurrAmount decimal.Decimal `json:"currAmount"`
}

// PlainString formats d keeping its scale, so -1.00 stays "-1.00".
func PlainString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}

	return d.String()
}
