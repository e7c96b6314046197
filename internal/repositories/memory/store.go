package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/repositories/staging"
	"github.com/SscSPs/bank_ledger/internal/utils/pagination"
)

// Store keeps users, accounts and the transaction log in process memory.
//
// Two levels of locking are used. Each account has its own exclusive lock, held for the whole
// of a ledger operation, freeze or delete on that account; multi-account operations take them
// in ascending id order. The store-wide RWMutex only guards the maps themselves: readers take
// it shared, and a unit of work takes it exclusively just long enough to apply its staged
// writes, so a reader sees either none or all of an operation.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	txns         []domain.Transaction
	txnsByAcct   map[string][]int
	users        map[string]domain.User
	usersByEmail map[string]string

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		txnsByAcct:   make(map[string][]int),
		users:        make(map[string]domain.User),
		usersByEmail: make(map[string]string),
		locks:        make(map[string]chan struct{}),
	}
}

var (
	_ portsrepo.AccountRepositoryFacade     = (*Store)(nil)
	_ portsrepo.TransactionRepositoryFacade = (*Store)(nil)
	_ portsrepo.UserRepositoryFacade        = (*Store)(nil)
	_ portsrepo.LedgerUnitOfWork            = (*Store)(nil)
)

// NewRepositoryProvider exposes a single Store through every repository port.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     store,
		TransactionRepo: store,
		UserRepo:        store,
		Ledger:          store,
	}
}

// accountLock returns the per-account lock, a one-slot channel so acquisition can honour ctx.
func (s *Store) accountLock(accountID string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[accountID] = l
	}
	return l
}

// lockAccounts acquires the locks of ids in ascending order and returns the release func.
func (s *Store) lockAccounts(ctx context.Context, ids []string) (func(), error) {
	ordered := sortedUnique(ids)
	held := make([]chan struct{}, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ordered {
		l := s.accountLock(id)
		select {
		case l <- struct{}{}:
			held = append(held, l)
		case <-ctx.Done():
			release()
			return nil, apperrors.NewTransientServiceError("timed out waiting for account lock", ctx.Err())
		}
	}
	return release, nil
}

func sortedUnique(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// --- LedgerUnitOfWork ---

func (s *Store) WithLockedAccounts(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	release, err := s.lockAccounts(ctx, accountIDs)
	if err != nil {
		return err
	}
	defer release()

	s.mu.RLock()
	locked := make([]domain.Account, 0, len(accountIDs))
	for _, id := range sortedUnique(accountIDs) {
		if a, ok := s.accounts[id]; ok && a.DeletedAt == nil {
			locked = append(locked, a)
		}
	}
	s.mu.RUnlock()

	tx := staging.New(locked)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if tx.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewTransientServiceError("ledger operation timed out before commit", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range tx.Touched() {
		s.accounts[a.AccountID] = a
	}
	for _, row := range tx.Rows() {
		s.appendRow(row)
	}
	return nil
}

// appendRow must be called with mu held for writing.
func (s *Store) appendRow(row domain.Transaction) {
	s.txns = append(s.txns, row)
	s.txnsByAcct[row.AccountID] = append(s.txnsByAcct[row.AccountID], len(s.txns)-1)
}

// --- AccountRepositoryFacade ---

func (s *Store) SaveAccount(ctx context.Context, account domain.Account, opening ...domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
	}
	s.accounts[account.AccountID] = account
	for _, row := range opening {
		s.appendRow(row)
	}
	return nil
}

// ownedLive must be called with mu held.
func (s *Store) ownedLive(accountID, ownerID string) (domain.Account, bool) {
	a, ok := s.accounts[accountID]
	if !ok || a.OwnerID != ownerID || a.DeletedAt != nil {
		return domain.Account{}, false
	}
	return a, true
}

func (s *Store) FindOwnedAccount(ctx context.Context, accountID string, ownerID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.ownedLive(accountID, ownerID)
	if !ok {
		return nil, apperrors.NewNotFoundError("account")
	}
	return &a, nil
}

func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, 0)
	for _, a := range s.accounts {
		if a.OwnerID == ownerID && a.DeletedAt == nil {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].AccountID < accounts[j].AccountID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Store) FindOldestAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	accounts, err := s.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, apperrors.NewNotFoundError("account")
	}
	return &accounts[0], nil
}

func (s *Store) SetAccountFrozen(ctx context.Context, accountID string, ownerID string, frozen bool, now time.Time) (*domain.Account, error) {
	release, err := s.lockAccounts(ctx, []string{accountID})
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedLive(accountID, ownerID)
	if !ok {
		return nil, apperrors.NewNotFoundError("account")
	}
	if a.Frozen != frozen {
		a.Frozen = frozen
		a.UpdatedAt = now
		s.accounts[accountID] = a
	}
	return &a, nil
}

func (s *Store) MarkAccountDeleted(ctx context.Context, accountID string, ownerID string, now time.Time) error {
	release, err := s.lockAccounts(ctx, []string{accountID})
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedLive(accountID, ownerID)
	if !ok {
		return apperrors.NewNotFoundError("account")
	}
	a.DeletedAt = &now
	a.UpdatedAt = now
	s.accounts[accountID] = a
	return nil
}

// --- TransactionRepositoryFacade ---

func (s *Store) ListTransactionsByAccountIDs(ctx context.Context, accountIDs []string, limit int, after *pagination.Cursor) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Transaction, 0)
	for _, id := range sortedUnique(accountIDs) {
		for _, idx := range s.txnsByAcct[id] {
			row := s.txns[idx]
			if after.Before(row.OccurredAt, row.TransactionID) {
				rows = append(rows, row)
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OccurredAt.Equal(rows[j].OccurredAt) {
			return rows[i].TransactionID > rows[j].TransactionID
		}
		return rows[i].OccurredAt.After(rows[j].OccurredAt)
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// --- UserRepositoryFacade ---

func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByEmail[user.Email]; taken {
		return fmt.Errorf("email %s: %w", user.Email, apperrors.ErrDuplicate)
	}
	s.users[user.UserID] = user
	s.usersByEmail[user.Email] = user.UserID
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("user")
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, apperrors.NewNotFoundError("user")
	}
	u := s.users[id]
	return &u, nil
}
