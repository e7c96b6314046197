package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the row shape of the accounts table.
type Account struct {
	AccountID     string          `db:"account_id"`
	OwnerID       string          `db:"owner_id"`
	AccountType   string          `db:"account_type"`
	DisplayDigits string          `db:"display_digits"`
	DisplayName   string          `db:"display_name"`
	Frozen        bool            `db:"frozen"`
	Balance       decimal.Decimal `db:"balance"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	DeletedAt     sql.NullTime    `db:"deleted_at"`
}
