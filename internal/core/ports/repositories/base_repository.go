package repositories

import (
	"context"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
)

// LedgerTx is the view a ledger operation has of the accounts it locked.
// Writes are staged and only become visible when the unit of work commits.
type LedgerTx interface {
	// Account returns the locked account as of the latest staged write.
	// ok is false if the account was not found, is not live, or was not locked.
	Account(accountID string) (account domain.Account, ok bool)

	// Post stages a transaction row and the matching balance change on its account.
	// The row's BalanceAfter is filled in. Posting to an account that was not locked is an error.
	Post(txn domain.Transaction) (domain.Account, error)
}

// LedgerUnitOfWork runs balance-changing operations under per-account exclusive locks.
type LedgerUnitOfWork interface {
	// WithLockedAccounts locks accountIDs in ascending id order, runs fn, and commits every
	// staged write if and only if fn returns nil. Accounts that do not exist are skipped;
	// fn observes them through LedgerTx.Account.
	WithLockedAccounts(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx LedgerTx) error) error
}
