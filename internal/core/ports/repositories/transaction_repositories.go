package repositories

import (
	"context"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/utils/pagination"
)

// TransactionReader defines read operations over the append-only transaction log.
type TransactionReader interface {
	// ListTransactionsByAccountIDs returns up to limit rows for the given accounts, newest first
	// by (occurredAt, id). A non-nil cursor resumes strictly after the row it identifies.
	ListTransactionsByAccountIDs(ctx context.Context, accountIDs []string, limit int, after *pagination.Cursor) ([]domain.Transaction, error)
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces.
// Rows are only ever appended through a LedgerTx or as opening rows of SaveAccount.
type TransactionRepositoryFacade interface {
	TransactionReader
}
