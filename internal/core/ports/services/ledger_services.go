package services

import (
	"context"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerWriterSvc defines the balance-changing operations.
type LedgerWriterSvc interface {
	// Deposit credits an owned, unfrozen account.
	Deposit(ctx context.Context, accountID string, ownerID string, amount decimal.Decimal) (*domain.Account, error)

	// Transfer debits one of the sender's accounts and credits the recipient's oldest account.
	Transfer(ctx context.Context, senderOwnerID string, req dto.TransferRequest) (*domain.TransferReceipt, error)
}

// LedgerReaderSvc defines read operations over the transaction log.
type LedgerReaderSvc interface {
	// ListTransactions returns a page of the owner's transactions across live accounts, newest first.
	ListTransactions(ctx context.Context, ownerID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}

// LedgerSvcFacade combines all ledger service interfaces
type LedgerSvcFacade interface {
	LedgerWriterSvc
	LedgerReaderSvc
}

// EventPublisher emits ledger events to external systems once an operation has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}
