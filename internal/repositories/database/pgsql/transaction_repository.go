package pgsql

import (
	"context"
	"database/sql"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/models"
	"github.com/SscSPs/bank_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `transaction_id, account_id, amount, kind, direction, description, counterparty_account_id, reference, balance_after, occurred_at`

const insertTransactionQuery = `
	INSERT INTO transactions (` + transactionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`

type PgxTransactionRepository struct {
	BaseRepository
}

func newPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

func toModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		TransactionID: d.TransactionID,
		AccountID:     d.AccountID,
		Amount:        d.Amount,
		Kind:          string(d.Kind),
		Direction:     string(d.Direction),
		Description:   d.Description,
		Reference:     d.Reference,
		BalanceAfter:  d.BalanceAfter,
		OccurredAt:    d.OccurredAt,
	}
	if d.CounterpartyAccountID != "" {
		m.CounterpartyAccountID = sql.NullString{String: d.CounterpartyAccountID, Valid: true}
	}
	return m
}

func toDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:         m.TransactionID,
		AccountID:             m.AccountID,
		Amount:                m.Amount,
		Kind:                  domain.TransactionKind(m.Kind),
		Direction:             domain.Direction(m.Direction),
		Description:           m.Description,
		CounterpartyAccountID: m.CounterpartyAccountID.String,
		Reference:             m.Reference,
		BalanceAfter:          m.BalanceAfter,
		OccurredAt:            m.OccurredAt,
	}
}

// queueInsertTransaction adds the insert of one log row to a batch.
func queueInsertTransaction(batch *pgx.Batch, txn domain.Transaction) {
	m := toModelTransaction(txn)
	batch.Queue(insertTransactionQuery,
		m.TransactionID,
		m.AccountID,
		m.Amount,
		m.Kind,
		m.Direction,
		m.Description,
		m.CounterpartyAccountID,
		m.Reference,
		m.BalanceAfter,
		m.OccurredAt,
	)
}

// ListTransactionsByAccountIDs returns rows of the given accounts newest first, resuming
// strictly after the cursor row when one is given.
func (r *PgxTransactionRepository) ListTransactionsByAccountIDs(ctx context.Context, accountIDs []string, limit int, after *pagination.Cursor) ([]domain.Transaction, error) {
	txns := make([]domain.Transaction, 0)
	ids := filterUUIDs(accountIDs)
	if len(ids) == 0 {
		return txns, nil
	}
	if after != nil && !isUUID(after.ID) {
		return nil, apperrors.NewValidationError("invalid nextToken")
	}

	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		query := `
			SELECT ` + transactionColumns + `
			FROM transactions
			WHERE account_id = ANY($1::uuid[])
			ORDER BY occurred_at DESC, transaction_id DESC
			LIMIT $2;
		`
		rows, err = r.Pool.Query(ctx, query, ids, limit)
	} else {
		query := `
			SELECT ` + transactionColumns + `
			FROM transactions
			WHERE account_id = ANY($1::uuid[])
			  AND (occurred_at, transaction_id) < ($3, $4::uuid)
			ORDER BY occurred_at DESC, transaction_id DESC
			LIMIT $2;
		`
		rows, err = r.Pool.Query(ctx, query, ids, limit, after.OccurredAt, after.ID)
	}
	if err != nil {
		return nil, mapDBError(err, "failed to list transactions")
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Transaction
		err := rows.Scan(
			&m.TransactionID,
			&m.AccountID,
			&m.Amount,
			&m.Kind,
			&m.Direction,
			&m.Description,
			&m.CounterpartyAccountID,
			&m.Reference,
			&m.BalanceAfter,
			&m.OccurredAt,
		)
		if err != nil {
			return nil, wrapScanErr(err, "transaction")
		}
		txns = append(txns, toDomainTransaction(m))
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "failed to iterate transactions")
	}
	return txns, nil
}
