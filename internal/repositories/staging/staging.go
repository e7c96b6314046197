// Package staging holds the write-staging half of a ledger unit of work, shared by the storage
// backends. A backend loads the locked accounts, hands a *Tx to the ledger operation, and on
// success persists Touched and Rows in one commit.
package staging

import (
	"fmt"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
)

// Tx implements repositories.LedgerTx over a fixed set of locked accounts.
type Tx struct {
	accounts map[string]domain.Account
	touched  []string
	rows     []domain.Transaction
}

var _ portsrepo.LedgerTx = (*Tx)(nil)

// New starts staging over the given locked, live accounts.
func New(locked []domain.Account) *Tx {
	tx := &Tx{accounts: make(map[string]domain.Account, len(locked))}
	for _, a := range locked {
		tx.accounts[a.AccountID] = a
	}
	return tx
}

func (t *Tx) Account(accountID string) (domain.Account, bool) {
	a, ok := t.accounts[accountID]
	return a, ok
}

func (t *Tx) Post(txn domain.Transaction) (domain.Account, error) {
	account, ok := t.accounts[txn.AccountID]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %s is not locked in this unit of work", txn.AccountID)
	}
	if !txn.Amount.IsPositive() {
		return domain.Account{}, fmt.Errorf("transaction %s has non-positive amount %s", txn.TransactionID, txn.Amount)
	}

	balance := account.Balance.Add(txn.Signed())
	if balance.IsNegative() {
		return domain.Account{}, apperrors.NewInsufficientFundsError(account.AccountID)
	}

	account.Balance = balance
	account.UpdatedAt = txn.OccurredAt
	txn.BalanceAfter = balance

	if _, seen := t.touchedIndex(account.AccountID); !seen {
		t.touched = append(t.touched, account.AccountID)
	}
	t.accounts[account.AccountID] = account
	t.rows = append(t.rows, txn)
	return account, nil
}

func (t *Tx) touchedIndex(accountID string) (int, bool) {
	for i, id := range t.touched {
		if id == accountID {
			return i, true
		}
	}
	return -1, false
}

// Touched returns the accounts whose balance changed, in first-posted order.
func (t *Tx) Touched() []domain.Account {
	out := make([]domain.Account, len(t.touched))
	for i, id := range t.touched {
		out[i] = t.accounts[id]
	}
	return out
}

// Rows returns the staged transaction rows in posting order.
func (t *Tx) Rows() []domain.Transaction {
	return t.rows
}

// Empty reports whether nothing was staged.
func (t *Tx) Empty() bool {
	return len(t.rows) == 0
}
