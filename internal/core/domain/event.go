package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEventType names an event emitted after a ledger operation commits.
type LedgerEventType string

const (
	EventDepositCompleted  LedgerEventType = "deposit.completed"
	EventTransferCompleted LedgerEventType = "transfer.completed"
)

// LedgerEvent describes a committed balance change for downstream consumers.
type LedgerEvent struct {
	Type                  LedgerEventType `json:"type"`
	Reference             string          `json:"reference"`
	OwnerID               string          `json:"ownerID"`
	AccountID             string          `json:"accountID"`
	CounterpartyAccountID string          `json:"counterpartyAccountID,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	OccurredAt            time.Time       `json:"occurredAt"`
}
