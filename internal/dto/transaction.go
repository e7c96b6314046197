package dto

import (
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransferRequest moves funds to the oldest account of the user registered under ToEmail.
type TransferRequest struct {
	ToEmail string          `json:"toEmail" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required,money"`
	// FromAccountID picks the debited account. When empty the sender's oldest account is used.
	FromAccountID string `json:"fromAccountId" binding:"omitempty,uuid"`
}

// TransferResponse acknowledges a committed transfer.
type TransferResponse struct {
	OK                 bool            `json:"ok"`
	Reference          string          `json:"reference"`
	SenderAccountID    string          `json:"senderAccountID"`
	RecipientAccountID string          `json:"recipientAccountID"`
	Amount             decimal.Decimal `json:"amount"`
	OccurredAt         time.Time       `json:"occurredAt"`
}

// ToTransferResponse converts a domain.TransferReceipt to TransferResponse DTO
func ToTransferResponse(r *domain.TransferReceipt) TransferResponse {
	return TransferResponse{
		OK:                 true,
		Reference:          r.Reference,
		SenderAccountID:    r.SenderAccountID,
		RecipientAccountID: r.RecipientAccountID,
		Amount:             r.Amount,
		OccurredAt:         r.OccurredAt,
	}
}

// ListTransactionsParams defines query parameters for listing transactions.
type ListTransactionsParams struct {
	Limit     int    `form:"limit,default=50" binding:"min=1,max=200"`
	NextToken string `form:"nextToken"`
}

// TransactionResponse defines the data returned for one ledger row.
type TransactionResponse struct {
	TransactionID         string                 `json:"transactionID"`
	AccountID             string                 `json:"accountID"`
	Amount                decimal.Decimal        `json:"amount"`
	Kind                  domain.TransactionKind `json:"type"`
	Direction             domain.Direction       `json:"direction"`
	Description           string                 `json:"description"`
	CounterpartyAccountID string                 `json:"counterpartyAccountID,omitempty"`
	Reference             string                 `json:"reference"`
	BalanceAfter          decimal.Decimal        `json:"balanceAfter"`
	OccurredAt            time.Time              `json:"date"`
}

// ListTransactionsResponse wraps a page of transactions, newest first.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:         t.TransactionID,
		AccountID:             t.AccountID,
		Amount:                t.Amount,
		Kind:                  t.Kind,
		Direction:             t.Direction,
		Description:           t.Description,
		CounterpartyAccountID: t.CounterpartyAccountID,
		Reference:             t.Reference,
		BalanceAfter:          t.BalanceAfter,
		OccurredAt:            t.OccurredAt,
	}
}

// ToListTransactionsResponse converts a page of domain.Transaction values.
func ToListTransactionsResponse(txns []domain.Transaction, nextToken *string) ListTransactionsResponse {
	res := make([]TransactionResponse, len(txns))
	for i, t := range txns {
		res[i] = ToTransactionResponse(&t)
	}
	return ListTransactionsResponse{Transactions: res, NextToken: nextToken}
}
