package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/utils"
	"github.com/google/uuid"
)

const openingDepositDescription = "Initial deposit"

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo   portsrepo.AccountRepositoryFacade
	now           func() time.Time
	displayDigits func() (string, error)
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountOpTimeout bounds every account operation.
func WithAccountOpTimeout(d time.Duration) AccountServiceOption {
	return func(s *accountService) {
		s.OpTimeout = d
	}
}

// WithAccountClock overrides the time source.
func WithAccountClock(now func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		s.now = now
	}
}

// WithDisplayDigitsGenerator overrides how account display digits are produced.
func WithDisplayDigitsGenerator(gen func() (string, error)) AccountServiceOption {
	return func(s *accountService) {
		s.displayDigits = gen
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo:   repo,
		now:           time.Now,
		displayDigits: utils.GenerateDisplayDigits,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, ownerID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	if !req.AccountType.Valid() {
		return nil, apperrors.NewValidationError("invalid account type %q: must be one of debit, credit, savings, checking", req.AccountType)
	}
	if err := domain.ValidateOpeningAmount(req.InitialAmount); err != nil {
		return nil, apperrors.NewValidationError("invalid initial amount: %v", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = domain.DefaultAccountName
	}

	digits, err := s.displayDigits()
	if err != nil {
		return nil, s.handleError(ctx, err, "Failed to generate display digits")
	}

	now := s.now().UTC()
	account := domain.Account{
		AccountID:     uuid.NewString(),
		OwnerID:       ownerID,
		AccountType:   req.AccountType,
		DisplayDigits: digits,
		DisplayName:   name,
		Frozen:        false,
		Balance:       req.InitialAmount,
		AuditFields: domain.AuditFields{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	// A funded account starts with a matching deposit row so its balance equals its history.
	var opening []domain.Transaction
	if req.InitialAmount.IsPositive() {
		opening = append(opening, domain.Transaction{
			TransactionID: uuid.NewString(),
			AccountID:     account.AccountID,
			Amount:        req.InitialAmount,
			Kind:          domain.KindDeposit,
			Direction:     domain.In,
			Description:   openingDepositDescription,
			Reference:     uuid.NewString(),
			BalanceAfter:  req.InitialAmount,
			OccurredAt:    now,
		})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.accountRepo.SaveAccount(ctx, account, opening...); err != nil {
		return nil, s.handleError(ctx, err, "Failed to save account",
			slog.String("account_id", account.AccountID))
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("account_type", string(account.AccountType)),
		slog.String("initial_amount", req.InitialAmount.String()))
	return &account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.handleError(ctx, err, "Failed to list accounts")
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID string, ownerID string) (*domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.accountRepo.FindOwnedAccount(ctx, accountID, ownerID)
	if err != nil {
		return nil, s.handleError(ctx, err, "Failed to get account", slog.String("account_id", accountID))
	}
	return account, nil
}

func (s *accountService) SetFrozen(ctx context.Context, accountID string, ownerID string, frozen bool) (*domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.accountRepo.SetAccountFrozen(ctx, accountID, ownerID, frozen, s.now().UTC())
	if err != nil {
		return nil, s.handleError(ctx, err, "Failed to update frozen flag", slog.String("account_id", accountID))
	}

	s.LogInfo(ctx, "Account frozen flag updated",
		slog.String("account_id", accountID),
		slog.Bool("frozen", account.Frozen))
	return account, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, accountID string, ownerID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.accountRepo.MarkAccountDeleted(ctx, accountID, ownerID, s.now().UTC()); err != nil {
		return s.handleError(ctx, err, "Failed to delete account", slog.String("account_id", accountID))
	}

	s.LogInfo(ctx, "Account deleted", slog.String("account_id", accountID))
	return nil
}
