package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferAudit is the immutable record of a completed transfer.
type TransferAudit struct {
	ID          string          `json:"id"`
	Seq         int64           `json:"seq"`
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	ToUserID    string          `json:"toUserId"`
	Amount      decimal.Decimal `json:"amount"` // must not be negative
	CreatedAt   time.Time       `json:"createdAt"`
}

// Payload projects the audit row to its boundary representation.
func (t TransferAudit) Payload() TransferPayload {
	return TransferPayload{
		TransferID:  t.ID,
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		UserID:      t.ToUserID,
		Amount:      t.Amount,
		CreatedAt:   t.CreatedAt,
	}
}

// Involves reports whether the transfer debited or credited accountID.
func (t TransferAudit) Involves(accountID string) bool {
	return t.FromAccount == accountID || t.ToAccount == accountID
}

// TransferPayload is the externally visible projection of a transfer.
//
// On requests UserID names the owner of ToAccount.
type TransferPayload struct {
	TransferID  string          `json:"transferId,omitempty"`
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TransferTxParams is the unit of work persisted by a transfer: the updated
// customer snapshots and the audit row.
type TransferTxParams struct {
	Customers []Customer
	Audit     TransferAudit
}

// TransferTxResult is the result of the transfer transaction.
type TransferTxResult struct {
	Customers []Customer
	Audit     TransferAudit
}
