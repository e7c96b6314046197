package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the ledger event that produced a transaction row.
type TransactionKind string

const (
	KindDeposit  TransactionKind = "deposit"
	KindWithdraw TransactionKind = "withdraw"
	KindTransfer TransactionKind = "transfer"
)

// Direction tells whether a row increases (In) or decreases (Out) the balance of its account.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Transaction is one row of the ledger, always attached to exactly one account.
type Transaction struct {
	TransactionID string          `json:"transactionID"`
	AccountID     string          `json:"accountID"`
	Amount        decimal.Decimal `json:"amount"` // Always positive; Direction carries the sign
	Kind          TransactionKind `json:"kind"`
	Direction     Direction       `json:"direction"`
	Description   string          `json:"description"`
	// CounterpartyAccountID is the other side of a transfer, empty otherwise.
	CounterpartyAccountID string `json:"counterpartyAccountID,omitempty"`
	// Reference groups the rows written by one ledger operation.
	Reference    string          `json:"reference"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

// Signed returns the amount with the sign implied by Direction.
func (t Transaction) Signed() decimal.Decimal {
	if t.Direction == Out {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransferReceipt summarises a committed transfer.
type TransferReceipt struct {
	Reference          string          `json:"reference"`
	SenderAccountID    string          `json:"senderAccountID"`
	RecipientAccountID string          `json:"recipientAccountID"`
	Amount             decimal.Decimal `json:"amount"`
	OccurredAt         time.Time       `json:"occurredAt"`
}
