package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the product type an account was opened as.
type AccountType string

const (
	Debit    AccountType = "debit"
	Credit   AccountType = "credit"
	Savings  AccountType = "savings"
	Checking AccountType = "checking"
)

// AccountTypes lists every accepted account type.
var AccountTypes = []AccountType{Debit, Credit, Savings, Checking}

// Valid reports whether t is one of the accepted account types.
func (t AccountType) Valid() bool {
	switch t {
	case Debit, Credit, Savings, Checking:
		return true
	}
	return false
}

// AccountState is the lifecycle state of an account.
type AccountState string

const (
	AccountActive  AccountState = "active"
	AccountFrozen  AccountState = "frozen"
	AccountDeleted AccountState = "deleted"
)

// DefaultAccountName is used when the owner does not name a new account.
const DefaultAccountName = "New Account"

// Account represents a monetary account held by a single owner.
type Account struct {
	AccountID   string      `json:"accountID"`
	OwnerID     string      `json:"ownerID"`
	AccountType AccountType `json:"accountType"`
	// DisplayDigits is a random 4-digit label. It is not unique and never used for lookups.
	DisplayDigits string          `json:"displayDigits"`
	DisplayName   string          `json:"displayName"`
	Frozen        bool            `json:"frozen"`
	Balance       decimal.Decimal `json:"balance"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// State derives the lifecycle state from the frozen flag and deletion marker.
func (a Account) State() AccountState {
	switch {
	case a.DeletedAt != nil:
		return AccountDeleted
	case a.Frozen:
		return AccountFrozen
	default:
		return AccountActive
	}
}
