package pgsql

import (
	"context"
	"sort"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/repositories/staging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedgerRepository runs ledger operations inside one database transaction, holding
// row locks on the involved accounts from the first read until commit.
type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerUnitOfWork = (*PgxLedgerRepository)(nil)

func (r *PgxLedgerRepository) WithLockedAccounts(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	ids := filterUUIDs(accountIDs)
	sort.Strings(ids)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	locked, err := r.lockAccounts(ctx, tx, ids)
	if err != nil {
		return err
	}

	stg := staging.New(locked)
	if err := fn(ctx, stg); err != nil {
		return err
	}
	if stg.Empty() {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range stg.Touched() {
		batch.Queue(`
			UPDATE accounts
			SET balance = $2, updated_at = $3
			WHERE account_id = $1;`,
			a.AccountID, a.Balance, a.UpdatedAt,
		)
	}
	for _, row := range stg.Rows() {
		queueInsertTransaction(batch, row)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapDBError(err, "failed to apply ledger writes")
	}
	return r.Commit(ctx, tx)
}

// lockAccounts takes row locks in ascending account id order. uuid ordering in Postgres
// matches the ordering of their canonical lower-case strings.
func (r *PgxLedgerRepository) lockAccounts(ctx context.Context, tx pgx.Tx, ids []string) ([]domain.Account, error) {
	locked := make([]domain.Account, 0, len(ids))
	if len(ids) == 0 {
		return locked, nil
	}

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_id = ANY($1::uuid[]) AND deleted_at IS NULL
		ORDER BY account_id
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, mapDBError(err, "failed to lock accounts")
	}
	defer rows.Close()

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, wrapScanErr(err, "account")
		}
		locked = append(locked, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "failed to lock accounts")
	}
	return locked, nil
}
