package services

import (
	"context"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// ListAccounts retrieves every live account of the owner, oldest first.
	ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error)

	// GetAccount retrieves an owned account.
	GetAccount(ctx context.Context, accountID string, ownerID string) (*domain.Account, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount opens a new account, optionally funded with an opening deposit.
	CreateAccount(ctx context.Context, ownerID string, req dto.CreateAccountRequest) (*domain.Account, error)

	// SetFrozen freezes or unfreezes an owned account. Repeating the current state is a no-op.
	SetFrozen(ctx context.Context, accountID string, ownerID string, frozen bool) (*domain.Account, error)

	// DeleteAccount removes an owned account. The operation is terminal.
	DeleteAccount(ctx context.Context, accountID string, ownerID string) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
