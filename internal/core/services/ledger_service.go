package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultTransactionPageSize = 50
	maxTransactionPageSize     = 200

	depositDescription = "Deposit"

	// maxTransferResolveAttempts bounds re-resolution when a fallback account is deleted mid-transfer.
	maxTransferResolveAttempts = 3
)

var errResolvedAccountGone = errors.New("resolved account was deleted before it could be locked")

// ledgerService implements the LedgerSvcFacade interface
type ledgerService struct {
	BaseService
	ledger      portsrepo.LedgerUnitOfWork
	accountRepo portsrepo.AccountReader
	txnRepo     portsrepo.TransactionReader
	userRepo    portsrepo.UserReader
	directory   portssvc.Directory
	publisher   portssvc.EventPublisher
	now         func() time.Time
}

// LedgerServiceOption is a functional option for configuring the ledger service
type LedgerServiceOption func(*ledgerService)

// WithLedgerOpTimeout bounds every ledger operation.
func WithLedgerOpTimeout(d time.Duration) LedgerServiceOption {
	return func(s *ledgerService) {
		s.OpTimeout = d
	}
}

// WithEventPublisher emits an event after every committed deposit or transfer.
func WithEventPublisher(p portssvc.EventPublisher) LedgerServiceOption {
	return func(s *ledgerService) {
		s.publisher = p
	}
}

// WithLedgerClock overrides the time source.
func WithLedgerClock(now func() time.Time) LedgerServiceOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// NewLedgerService creates the service that applies and records balance changes.
func NewLedgerService(repos portsrepo.RepositoryProvider, directory portssvc.Directory, options ...LedgerServiceOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		ledger:      repos.Ledger,
		accountRepo: repos.AccountRepo,
		txnRepo:     repos.TransactionRepo,
		userRepo:    repos.UserRepo,
		directory:   directory,
		now:         time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) Deposit(ctx context.Context, accountID string, ownerID string, amount decimal.Decimal) (*domain.Account, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, apperrors.NewValidationError("invalid amount: %v", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now().UTC()
	reference := uuid.NewString()
	var updated domain.Account

	err := s.ledger.WithLockedAccounts(ctx, []string{accountID}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		account, ok := tx.Account(accountID)
		if !ok || account.OwnerID != ownerID {
			return apperrors.NewNotFoundError("account")
		}
		if account.Frozen {
			return apperrors.NewFrozenError(accountID)
		}

		var err error
		updated, err = tx.Post(domain.Transaction{
			TransactionID: uuid.NewString(),
			AccountID:     accountID,
			Amount:        amount,
			Kind:          domain.KindDeposit,
			Direction:     domain.In,
			Description:   depositDescription,
			Reference:     reference,
			OccurredAt:    now,
		})
		return err
	})
	if err != nil {
		return nil, s.handleError(ctx, err, "Deposit failed", slog.String("account_id", accountID))
	}

	s.LogInfo(ctx, "Deposit committed",
		slog.String("account_id", accountID),
		slog.String("amount", amount.String()),
		slog.String("reference", reference))

	s.publish(ctx, domain.LedgerEvent{
		Type:       domain.EventDepositCompleted,
		Reference:  reference,
		OwnerID:    ownerID,
		AccountID:  accountID,
		Amount:     amount,
		OccurredAt: now,
	})
	return &updated, nil
}

// Transfer checks, in order: input, sender account, sender frozen, sender funds, recipient user,
// recipient account, recipient frozen. The first failing check decides the error. Recipient
// resolution happens before locking so both accounts can be locked together in id order; its
// outcome is only reported once the sender checks have passed under the locks. An account picked
// by fallback that is deleted before it can be locked is resolved again, up to
// maxTransferResolveAttempts times.
func (s *ledgerService) Transfer(ctx context.Context, senderOwnerID string, req dto.TransferRequest) (*domain.TransferReceipt, error) {
	email := strings.ToLower(strings.TrimSpace(req.ToEmail))
	if email == "" {
		return nil, apperrors.NewValidationError("recipient email is required")
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, apperrors.NewValidationError("invalid amount: %v", err)
	}
	amount := req.Amount

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now().UTC()
	reference := uuid.NewString()
	debitDescription := "Transfer to " + email
	creditDescription := "Transfer from " + s.senderLabel(ctx, senderOwnerID)

	var senderAccountID, recipientAccountID string
	for attempt := 1; ; attempt++ {
		var err error
		senderAccountID, recipientAccountID, err = s.postTransfer(ctx, transferPosting{
			senderOwnerID:     senderOwnerID,
			fromAccountID:     req.FromAccountID,
			email:             email,
			amount:            amount,
			reference:         reference,
			now:               now,
			debitDescription:  debitDescription,
			creditDescription: creditDescription,
			lastAttempt:       attempt == maxTransferResolveAttempts,
		})
		if errors.Is(err, errResolvedAccountGone) {
			s.LogDebug(ctx, "Resolved account deleted before locking, resolving again", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	receipt := &domain.TransferReceipt{
		Reference:          reference,
		SenderAccountID:    senderAccountID,
		RecipientAccountID: recipientAccountID,
		Amount:             amount,
		OccurredAt:         now,
	}

	s.LogInfo(ctx, "Transfer committed",
		slog.String("sender_account_id", senderAccountID),
		slog.String("recipient_account_id", recipientAccountID),
		slog.String("amount", amount.String()),
		slog.String("reference", reference))

	s.publish(ctx, domain.LedgerEvent{
		Type:                  domain.EventTransferCompleted,
		Reference:             reference,
		OwnerID:               senderOwnerID,
		AccountID:             senderAccountID,
		CounterpartyAccountID: recipientAccountID,
		Amount:                amount,
		OccurredAt:            now,
	})
	return receipt, nil
}

// transferPosting carries one attempt of a transfer.
type transferPosting struct {
	senderOwnerID     string
	fromAccountID     string
	email             string
	amount            decimal.Decimal
	reference         string
	now               time.Time
	debitDescription  string
	creditDescription string
	lastAttempt       bool
}

// postTransfer resolves both accounts, locks them and posts the pair of rows. It reports
// errResolvedAccountGone when an account picked by fallback was deleted between resolution and
// locking, unless this is the last attempt.
func (s *ledgerService) postTransfer(ctx context.Context, p transferPosting) (string, string, error) {
	senderAccountID, err := s.resolveSenderAccount(ctx, p.senderOwnerID, p.fromAccountID)
	if err != nil {
		return "", "", s.handleError(ctx, err, "Failed to resolve sender account")
	}

	recipientAccountID, recipientErr := s.resolveRecipientAccount(ctx, p.email)
	if recipientErr != nil && apperrors.KindOf(recipientErr) == apperrors.KindService {
		return "", "", s.handleError(ctx, recipientErr, "Failed to resolve transfer recipient")
	}

	lockIDs := []string{senderAccountID}
	if recipientErr == nil && recipientAccountID != senderAccountID {
		lockIDs = append(lockIDs, recipientAccountID)
	}

	err = s.ledger.WithLockedAccounts(ctx, lockIDs, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		sender, ok := tx.Account(senderAccountID)
		if !ok || sender.OwnerID != p.senderOwnerID {
			if !ok && p.fromAccountID == "" && !p.lastAttempt {
				return errResolvedAccountGone
			}
			return apperrors.NewNotFoundError("sender account")
		}
		if sender.Frozen {
			return apperrors.NewFrozenError(sender.AccountID)
		}
		if sender.Balance.LessThan(p.amount) {
			return apperrors.NewInsufficientFundsError(sender.AccountID)
		}

		if recipientErr != nil {
			return recipientErr
		}
		if recipientAccountID == senderAccountID {
			return apperrors.NewValidationError("cannot transfer to the same account")
		}
		recipient, ok := tx.Account(recipientAccountID)
		if !ok {
			if !p.lastAttempt {
				return errResolvedAccountGone
			}
			return apperrors.NewNotFoundError("recipient account")
		}
		if recipient.Frozen {
			return apperrors.NewFrozenError(recipient.AccountID)
		}

		if _, err := tx.Post(domain.Transaction{
			TransactionID:         uuid.NewString(),
			AccountID:             sender.AccountID,
			Amount:                p.amount,
			Kind:                  domain.KindTransfer,
			Direction:             domain.Out,
			Description:           p.debitDescription,
			CounterpartyAccountID: recipient.AccountID,
			Reference:             p.reference,
			OccurredAt:            p.now,
		}); err != nil {
			return err
		}
		_, err := tx.Post(domain.Transaction{
			TransactionID:         uuid.NewString(),
			AccountID:             recipient.AccountID,
			Amount:                p.amount,
			Kind:                  domain.KindTransfer,
			Direction:             domain.In,
			Description:           p.creditDescription,
			CounterpartyAccountID: sender.AccountID,
			Reference:             p.reference,
			OccurredAt:            p.now,
		})
		return err
	})
	if errors.Is(err, errResolvedAccountGone) {
		return "", "", err
	}
	if err != nil {
		return "", "", s.handleError(ctx, err, "Transfer failed",
			slog.String("sender_account_id", senderAccountID),
			slog.String("recipient_account_id", recipientAccountID))
	}

	return senderAccountID, recipientAccountID, nil
}

// resolveSenderAccount picks the debited account: the requested one if given, otherwise the
// owner's oldest live account.
func (s *ledgerService) resolveSenderAccount(ctx context.Context, ownerID, fromAccountID string) (string, error) {
	var (
		account *domain.Account
		err     error
	)
	if fromAccountID != "" {
		account, err = s.accountRepo.FindOwnedAccount(ctx, fromAccountID, ownerID)
	} else {
		account, err = s.accountRepo.FindOldestAccount(ctx, ownerID)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", apperrors.NewNotFoundError("sender account")
	}
	if err != nil {
		return "", err
	}
	return account.AccountID, nil
}

// resolveRecipientAccount maps the recipient email to that user's oldest live account.
func (s *ledgerService) resolveRecipientAccount(ctx context.Context, email string) (string, error) {
	userID, err := s.directory.LookupByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", apperrors.NewNotFoundError("recipient user")
	}
	if err != nil {
		return "", err
	}

	account, err := s.accountRepo.FindOldestAccount(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", apperrors.NewValidationError("recipient has no account")
	}
	if err != nil {
		return "", err
	}
	return account.AccountID, nil
}

// senderLabel names the sender in the recipient's row: their email when known, else their id.
func (s *ledgerService) senderLabel(ctx context.Context, ownerID string) string {
	if s.userRepo == nil {
		return ownerID
	}
	user, err := s.userRepo.FindUserByID(ctx, ownerID)
	if err != nil || user == nil || user.Email == "" {
		return ownerID
	}
	return user.Email
}

func (s *ledgerService) ListTransactions(ctx context.Context, ownerID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	limit := params.Limit
	if limit == 0 {
		limit = defaultTransactionPageSize
	}
	if limit < 0 || limit > maxTransactionPageSize {
		return nil, apperrors.NewValidationError("limit must be between 1 and %d", maxTransactionPageSize)
	}

	var cursor *pagination.Cursor
	if params.NextToken != "" {
		var err error
		if cursor, err = pagination.DecodeToken(params.NextToken); err != nil {
			return nil, apperrors.NewValidationError("invalid nextToken: %v", err)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.handleError(ctx, err, "Failed to list accounts for transactions")
	}
	if len(accounts) == 0 {
		resp := dto.ToListTransactionsResponse(nil, nil)
		return &resp, nil
	}

	accountIDs := make([]string, len(accounts))
	for i, a := range accounts {
		accountIDs[i] = a.AccountID
	}

	// One extra row tells whether another page exists.
	txns, err := s.txnRepo.ListTransactionsByAccountIDs(ctx, accountIDs, limit+1, cursor)
	if err != nil {
		return nil, s.handleError(ctx, err, "Failed to list transactions",
			slog.Int("account_count", len(accountIDs)))
	}

	var nextToken *string
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[limit-1]
		token := pagination.EncodeToken(last.OccurredAt, last.TransactionID)
		nextToken = &token
	}

	resp := dto.ToListTransactionsResponse(txns, nextToken)
	return &resp, nil
}

// publish emits a ledger event after commit. Failures are logged and never undo the operation.
func (s *ledgerService) publish(ctx context.Context, event domain.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.LogError(ctx, fmt.Errorf("publish %s: %w", event.Type, err), "Failed to publish ledger event",
			slog.String("reference", event.Reference))
	}
}
