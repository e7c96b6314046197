package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/core/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vanishingAccountRepo deletes the account it hands out from FindOldestAccount for victimID,
// simulating a concurrent delete landing between resolution and locking.
type vanishingAccountRepo struct {
	portsrepo.AccountRepositoryFacade
	mu       sync.Mutex
	victimID string
	times    int
}

func (r *vanishingAccountRepo) FindOldestAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	account, err := r.AccountRepositoryFacade.FindOldestAccount(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ownerID == r.victimID && r.times > 0 {
		r.times--
		if err := r.AccountRepositoryFacade.MarkAccountDeleted(ctx, account.AccountID, ownerID, time.Now()); err != nil {
			return nil, err
		}
	}
	return account, nil
}

type transferFixture struct {
	ctx        context.Context
	repo       *vanishingAccountRepo
	userSvc    portssvc.UserSvcFacade
	accountSvc portssvc.AccountSvcFacade
	ledgerSvc  portssvc.LedgerSvcFacade
}

func newTransferFixture(t *testing.T) *transferFixture {
	repos := memory.NewRepositoryProvider(memory.NewStore())
	clock := &tickClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	repo := &vanishingAccountRepo{AccountRepositoryFacade: repos.AccountRepo}
	repos.AccountRepo = repo

	userSvc := services.NewUserService(repos.UserRepo)
	return &transferFixture{
		ctx:        context.Background(),
		repo:       repo,
		userSvc:    userSvc,
		accountSvc: services.NewAccountService(repo, services.WithAccountClock(clock.Now)),
		ledgerSvc:  services.NewLedgerService(repos, userSvc, services.WithLedgerClock(clock.Now)),
	}
}

func (f *transferFixture) user(t *testing.T, email string) string {
	user, err := f.userSvc.RegisterUser(f.ctx, dto.RegisterUserRequest{Name: email, Email: email, Password: "password123"})
	require.NoError(t, err)
	return user.UserID
}

func (f *transferFixture) account(t *testing.T, ownerID, initial string) *domain.Account {
	account, err := f.accountSvc.CreateAccount(f.ctx, ownerID, dto.CreateAccountRequest{
		AccountType:   domain.Checking,
		InitialAmount: decimal.RequireFromString(initial),
	})
	require.NoError(t, err)
	return account
}

func TestTransfer_RecipientAccountDeletedBeforeLock_UsesNextLiveAccount(t *testing.T) {
	f := newTransferFixture(t)
	sender := f.user(t, "sam@example.com")
	recipient := f.user(t, "rae@example.com")
	from := f.account(t, sender, "100")
	oldest := f.account(t, recipient, "0")
	next := f.account(t, recipient, "0")
	f.repo.victimID = recipient
	f.repo.times = 1

	receipt, err := f.ledgerSvc.Transfer(f.ctx, sender, dto.TransferRequest{ToEmail: "rae@example.com", Amount: decimal.NewFromInt(25)})

	require.NoError(t, err)
	assert.Equal(t, from.AccountID, receipt.SenderAccountID)
	assert.Equal(t, next.AccountID, receipt.RecipientAccountID)
	assert.NotEqual(t, oldest.AccountID, receipt.RecipientAccountID)

	credited, err := f.accountSvc.GetAccount(f.ctx, next.AccountID, recipient)
	require.NoError(t, err)
	assert.True(t, credited.Balance.Equal(decimal.NewFromInt(25)))
}

func TestTransfer_SenderFallbackDeletedBeforeLock_UsesNextLiveAccount(t *testing.T) {
	f := newTransferFixture(t)
	sender := f.user(t, "sid@example.com")
	recipient := f.user(t, "ria@example.com")
	f.account(t, sender, "100")
	second := f.account(t, sender, "40")
	to := f.account(t, recipient, "0")
	f.repo.victimID = sender
	f.repo.times = 1

	receipt, err := f.ledgerSvc.Transfer(f.ctx, sender, dto.TransferRequest{ToEmail: "ria@example.com", Amount: decimal.NewFromInt(10)})

	require.NoError(t, err)
	assert.Equal(t, second.AccountID, receipt.SenderAccountID)
	assert.Equal(t, to.AccountID, receipt.RecipientAccountID)
}

func TestTransfer_RecipientLosesOnlyAccountBeforeLock(t *testing.T) {
	f := newTransferFixture(t)
	sender := f.user(t, "sol@example.com")
	recipient := f.user(t, "rio@example.com")
	from := f.account(t, sender, "100")
	f.account(t, recipient, "0")
	f.repo.victimID = recipient
	f.repo.times = 1

	receipt, err := f.ledgerSvc.Transfer(f.ctx, sender, dto.TransferRequest{ToEmail: "rio@example.com", Amount: decimal.NewFromInt(10)})

	assert.Nil(t, receipt)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	unchanged, err := f.accountSvc.GetAccount(f.ctx, from.AccountID, sender)
	require.NoError(t, err)
	assert.True(t, unchanged.Balance.Equal(decimal.NewFromInt(100)))
}

func TestTransfer_RecipientKeepsVanishing_GivesUpWithNotFound(t *testing.T) {
	f := newTransferFixture(t)
	sender := f.user(t, "sue@example.com")
	recipient := f.user(t, "ray@example.com")
	f.account(t, sender, "100")
	for i := 0; i < 4; i++ {
		f.account(t, recipient, "0")
	}
	f.repo.victimID = recipient
	f.repo.times = 10

	receipt, err := f.ledgerSvc.Transfer(f.ctx, sender, dto.TransferRequest{ToEmail: "ray@example.com", Amount: decimal.NewFromInt(10)})

	assert.Nil(t, receipt)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
