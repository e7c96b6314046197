package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the row shape of the append-only transactions table.
type Transaction struct {
	TransactionID         string          `db:"transaction_id"`
	AccountID             string          `db:"account_id"`
	Amount                decimal.Decimal `db:"amount"`
	Kind                  string          `db:"kind"`
	Direction             string          `db:"direction"`
	Description           string          `db:"description"`
	CounterpartyAccountID sql.NullString  `db:"counterparty_account_id"`
	Reference             string          `db:"reference"`
	BalanceAfter          decimal.Decimal `db:"balance_after"`
	OccurredAt            time.Time       `db:"occurred_at"`
}
