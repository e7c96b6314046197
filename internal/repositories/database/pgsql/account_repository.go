package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `account_id, owner_id, account_type, display_digits, display_name, frozen, balance, created_at, updated_at, deleted_at`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// Helper to convert domain.Account to models.Account for DB storage
func toModelAccount(d domain.Account) models.Account {
	m := models.Account{
		AccountID:     d.AccountID,
		OwnerID:       d.OwnerID,
		AccountType:   string(d.AccountType),
		DisplayDigits: d.DisplayDigits,
		DisplayName:   d.DisplayName,
		Frozen:        d.Frozen,
		Balance:       d.Balance,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.DeletedAt != nil {
		m.DeletedAt = sql.NullTime{Time: *d.DeletedAt, Valid: true}
	}
	return m
}

// Helper to convert models.Account from DB to domain.Account
func toDomainAccount(m models.Account) domain.Account {
	d := domain.Account{
		AccountID:     m.AccountID,
		OwnerID:       m.OwnerID,
		AccountType:   domain.AccountType(m.AccountType),
		DisplayDigits: m.DisplayDigits,
		DisplayName:   m.DisplayName,
		Frozen:        m.Frozen,
		Balance:       m.Balance,
		AuditFields: domain.AuditFields{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}
	if m.DeletedAt.Valid {
		deletedAt := m.DeletedAt.Time
		d.DeletedAt = &deletedAt
	}
	return d
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.OwnerID,
		&m.AccountType,
		&m.DisplayDigits,
		&m.DisplayName,
		&m.Frozen,
		&m.Balance,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DeletedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return toDomainAccount(m), nil
}

// SaveAccount inserts a new account and its opening rows in one transaction.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account, opening ...domain.Transaction) error {
	m := toModelAccount(account)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
		m.AccountID,
		m.OwnerID,
		m.AccountType,
		m.DisplayDigits,
		m.DisplayName,
		m.Frozen,
		m.Balance,
		m.CreatedAt,
		m.UpdatedAt,
		m.DeletedAt,
	)
	for _, row := range opening {
		queueInsertTransaction(batch, row)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", m.AccountID, apperrors.ErrDuplicate)
		}
		return mapDBError(err, "failed to save account "+m.AccountID)
	}
	return r.Commit(ctx, tx)
}

// FindOwnedAccount retrieves a live account by id if it belongs to ownerID.
func (r *PgxAccountRepository) FindOwnedAccount(ctx context.Context, accountID string, ownerID string) (*domain.Account, error) {
	if !isUUID(accountID) || !isUUID(ownerID) {
		return nil, apperrors.NewNotFoundError("account")
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_id = $1 AND owner_id = $2 AND deleted_at IS NULL;
	`
	account, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("account")
		}
		return nil, mapDBError(err, "failed to find account "+accountID)
	}
	return &account, nil
}

// ListAccountsByOwner retrieves the owner's live accounts, oldest first.
func (r *PgxAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	if !isUUID(ownerID) {
		return accounts, nil
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, account_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, mapDBError(err, "failed to list accounts")
	}
	defer rows.Close()

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, wrapScanErr(err, "account")
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "failed to iterate accounts")
	}
	return accounts, nil
}

// FindOldestAccount retrieves the owner's earliest-created live account.
func (r *PgxAccountRepository) FindOldestAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	if !isUUID(ownerID) {
		return nil, apperrors.NewNotFoundError("account")
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, account_id ASC
		LIMIT 1;
	`
	account, err := scanAccount(r.Pool.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("account")
		}
		return nil, mapDBError(err, "failed to find oldest account")
	}
	return &account, nil
}

// SetAccountFrozen flips the frozen flag under the row lock. updated_at only moves on a change.
func (r *PgxAccountRepository) SetAccountFrozen(ctx context.Context, accountID string, ownerID string, frozen bool, now time.Time) (*domain.Account, error) {
	if !isUUID(accountID) || !isUUID(ownerID) {
		return nil, apperrors.NewNotFoundError("account")
	}
	query := `
		UPDATE accounts
		SET frozen = $3,
		    updated_at = CASE WHEN frozen <> $3 THEN $4 ELSE updated_at END
		WHERE account_id = $1 AND owner_id = $2 AND deleted_at IS NULL
		RETURNING ` + accountColumns + `;
	`
	account, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID, ownerID, frozen, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("account")
		}
		return nil, mapDBError(err, "failed to update account "+accountID)
	}
	return &account, nil
}

// MarkAccountDeleted soft-deletes an owned live account. Its transaction rows stay in place.
func (r *PgxAccountRepository) MarkAccountDeleted(ctx context.Context, accountID string, ownerID string, now time.Time) error {
	if !isUUID(accountID) || !isUUID(ownerID) {
		return apperrors.NewNotFoundError("account")
	}
	query := `
		UPDATE accounts
		SET deleted_at = $3, updated_at = $3
		WHERE account_id = $1 AND owner_id = $2 AND deleted_at IS NULL;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, ownerID, now)
	if err != nil {
		return mapDBError(err, "failed to delete account "+accountID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account")
	}
	return nil
}
