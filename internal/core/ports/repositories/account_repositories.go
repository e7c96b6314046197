package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
)

// AccountReader defines read operations for account data.
// Every lookup filters on owner and liveness together, so an account owned by someone else
// is reported exactly like one that does not exist.
type AccountReader interface {
	// FindOwnedAccount retrieves a live account by id if it belongs to ownerID.
	FindOwnedAccount(ctx context.Context, accountID string, ownerID string) (*domain.Account, error)

	// ListAccountsByOwner retrieves the live accounts of an owner, oldest first.
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)

	// FindOldestAccount retrieves the owner's earliest-created live account.
	FindOldestAccount(ctx context.Context, ownerID string) (*domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account together with its opening rows in one commit unit.
	SaveAccount(ctx context.Context, account domain.Account, opening ...domain.Transaction) error

	// SetAccountFrozen sets the frozen flag of an owned live account and returns the result.
	SetAccountFrozen(ctx context.Context, accountID string, ownerID string, frozen bool, now time.Time) (*domain.Account, error)

	// MarkAccountDeleted soft-deletes an owned live account. Its transaction rows are kept.
	MarkAccountDeleted(ctx context.Context, accountID string, ownerID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
