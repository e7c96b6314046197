package dto

import (
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to open a new account.
type CreateAccountRequest struct {
	AccountType   domain.AccountType `json:"type" binding:"required,oneof=debit credit savings checking"`
	InitialAmount decimal.Decimal    `json:"initialAmount" binding:"opening_amount"` // Optional, defaults to 0
	Name          string             `json:"name" binding:"max=64"`                  // Optional, defaults to domain.DefaultAccountName
}

// SetFrozenRequest toggles the frozen flag of an account.
type SetFrozenRequest struct {
	IsFrozen *bool `json:"isFrozen" binding:"required"`
}

// DepositRequest defines the amount credited by a deposit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required,money"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID     string             `json:"accountID"`
	AccountType   domain.AccountType `json:"type"`
	DisplayDigits string             `json:"last4"`
	DisplayName   string             `json:"name"`
	Frozen        bool               `json:"isFrozen"`
	Balance       decimal.Decimal    `json:"balance"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     acc.AccountID,
		AccountType:   acc.AccountType,
		DisplayDigits: acc.DisplayDigits,
		DisplayName:   acc.DisplayName,
		Frozen:        acc.Frozen,
		Balance:       acc.Balance.Round(domain.MoneyScale),
		CreatedAt:     acc.CreatedAt,
		UpdatedAt:     acc.UpdatedAt,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i, acc := range accounts {
		res[i] = ToAccountResponse(&acc)
	}
	return res
}
