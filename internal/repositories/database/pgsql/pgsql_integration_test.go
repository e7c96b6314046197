//go:build integration

package pgsql_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/core/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/bank_ledger/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgresContainer starts a PostgreSQL testcontainer and returns the connection URL.
func startPostgresContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "ledger",
			"POSTGRES_PASSWORD": "ledger",
			"POSTGRES_DB":       "ledger",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return container, fmt.Sprintf("postgres://ledger:ledger@%s:%s/ledger?sslmode=disable", host, port.Port())
}

// PgsqlIntegrationSuite runs the services over the Postgres repositories.
type PgsqlIntegrationSuite struct {
	suite.Suite
	ctx        context.Context
	container  testcontainers.Container
	pool       *pgxpool.Pool
	repos      portsrepo.RepositoryProvider
	userSvc    portssvc.UserSvcFacade
	accountSvc portssvc.AccountSvcFacade
	ledgerSvc  portssvc.LedgerSvcFacade
}

func (s *PgsqlIntegrationSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration test in short mode")
	}
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	container, dbURL := startPostgresContainer(s.ctx, s.T())
	s.container = container

	migrationsDir, err := filepath.Abs("../../../../migrations")
	s.Require().NoError(err)
	s.Require().NoError(database.RunMigrations(dbURL, "file://"+migrationsDir, logger))
	// A second run finds nothing to apply.
	s.Require().NoError(database.RunMigrations(dbURL, "file://"+migrationsDir, logger))

	s.pool, err = database.NewPgxPool(s.ctx, dbURL, 30*time.Second, logger)
	s.Require().NoError(err)

	s.repos = pgsql.NewRepositoryProvider(s.pool)
	s.userSvc = services.NewUserService(s.repos.UserRepo)
	s.accountSvc = services.NewAccountService(s.repos.AccountRepo)
	s.ledgerSvc = services.NewLedgerService(s.repos, s.userSvc, services.WithLedgerOpTimeout(10*time.Second))
}

func (s *PgsqlIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("failed to terminate postgres container: %v", err)
		}
	}
}

// register creates a user with a unique email and returns the id and the email.
func (s *PgsqlIntegrationSuite) register(prefix string) (string, string) {
	email := fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
	user, err := s.userSvc.RegisterUser(s.ctx, dto.RegisterUserRequest{Name: prefix, Email: email, Password: "password123"})
	s.Require().NoError(err)
	return user.UserID, email
}

func (s *PgsqlIntegrationSuite) open(ownerID string, initial string) *domain.Account {
	req := dto.CreateAccountRequest{AccountType: domain.Checking}
	if initial != "" {
		req.InitialAmount = decimal.RequireFromString(initial)
	}
	account, err := s.accountSvc.CreateAccount(s.ctx, ownerID, req)
	s.Require().NoError(err)
	return account
}

func (s *PgsqlIntegrationSuite) balance(ownerID, accountID string) decimal.Decimal {
	account, err := s.accountSvc.GetAccount(s.ctx, accountID, ownerID)
	s.Require().NoError(err)
	return account.Balance
}

// assertLedgerIdentity compares each stored balance with the signed sum of its rows in SQL.
func (s *PgsqlIntegrationSuite) assertLedgerIdentity(accountIDs ...string) {
	for _, id := range accountIDs {
		var balance, sum decimal.Decimal
		err := s.pool.QueryRow(s.ctx, `
			SELECT a.balance,
			       COALESCE(SUM(CASE WHEN t.direction = 'out' THEN -t.amount ELSE t.amount END), 0)
			FROM accounts a LEFT JOIN transactions t ON t.account_id = a.account_id
			WHERE a.account_id = $1
			GROUP BY a.balance`, id).Scan(&balance, &sum)
		s.Require().NoError(err)
		s.True(balance.Equal(sum), "account %s: balance %s, rows %s", id, balance, sum)
	}
}

func (s *PgsqlIntegrationSuite) TestDepositAndTransfer() {
	sender, _ := s.register("sender")
	recipient, recipientEmail := s.register("recipient")
	from := s.open(sender, "100")
	to := s.open(recipient, "20")

	updated, err := s.ledgerSvc.Deposit(s.ctx, from.AccountID, sender, decimal.RequireFromString("50"))
	s.Require().NoError(err)
	s.True(updated.Balance.Equal(decimal.NewFromInt(150)))

	receipt, err := s.ledgerSvc.Transfer(s.ctx, sender, dto.TransferRequest{ToEmail: recipientEmail, Amount: decimal.RequireFromString("30")})
	s.Require().NoError(err)
	s.Equal(to.AccountID, receipt.RecipientAccountID)

	s.True(s.balance(sender, from.AccountID).Equal(decimal.NewFromInt(120)))
	s.True(s.balance(recipient, to.AccountID).Equal(decimal.NewFromInt(50)))

	var rows int
	s.Require().NoError(s.pool.QueryRow(s.ctx, `SELECT COUNT(*) FROM transactions WHERE reference = $1`, receipt.Reference).Scan(&rows))
	s.Equal(2, rows)
	s.assertLedgerIdentity(from.AccountID, to.AccountID)
}

func (s *PgsqlIntegrationSuite) TestInsufficientFundsChangesNothing() {
	sender, _ := s.register("poor")
	recipient, recipientEmail := s.register("rich")
	from := s.open(sender, "10")
	to := s.open(recipient, "")

	_, err := s.ledgerSvc.Transfer(s.ctx, sender, dto.TransferRequest{ToEmail: recipientEmail, Amount: decimal.RequireFromString("20")})

	s.ErrorIs(err, apperrors.ErrInsufficientFunds)
	s.True(s.balance(sender, from.AccountID).Equal(decimal.NewFromInt(10)))
	s.True(s.balance(recipient, to.AccountID).IsZero())
	s.assertLedgerIdentity(from.AccountID, to.AccountID)
}

func (s *PgsqlIntegrationSuite) TestFrozenAndDeleted() {
	owner, _ := s.register("frozen")
	account := s.open(owner, "5")

	frozen, err := s.accountSvc.SetFrozen(s.ctx, account.AccountID, owner, true)
	s.Require().NoError(err)
	s.True(frozen.Frozen)
	again, err := s.accountSvc.SetFrozen(s.ctx, account.AccountID, owner, true)
	s.Require().NoError(err)
	s.Equal(frozen.UpdatedAt, again.UpdatedAt, "repeating the current state is a no-op")

	_, err = s.ledgerSvc.Deposit(s.ctx, account.AccountID, owner, decimal.NewFromInt(1))
	s.ErrorIs(err, apperrors.ErrFrozen)

	s.Require().NoError(s.accountSvc.DeleteAccount(s.ctx, account.AccountID, owner))
	s.ErrorIs(s.accountSvc.DeleteAccount(s.ctx, account.AccountID, owner), apperrors.ErrNotFound)

	accounts, err := s.accountSvc.ListAccounts(s.ctx, owner)
	s.Require().NoError(err)
	s.Empty(accounts)

	// The rows are retained for the record.
	var rows int
	s.Require().NoError(s.pool.QueryRow(s.ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, account.AccountID).Scan(&rows))
	s.Equal(1, rows)
}

func (s *PgsqlIntegrationSuite) TestMalformedIDs() {
	owner, _ := s.register("malformed")

	_, err := s.accountSvc.GetAccount(s.ctx, "not-a-uuid", owner)
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.ledgerSvc.Deposit(s.ctx, "not-a-uuid", owner, decimal.NewFromInt(1))
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *PgsqlIntegrationSuite) TestDuplicateEmail() {
	_, email := s.register("dup")

	_, err := s.userSvc.RegisterUser(s.ctx, dto.RegisterUserRequest{Name: "again", Email: email, Password: "password123"})

	s.Equal(apperrors.KindConflict, apperrors.KindOf(err))
}

func (s *PgsqlIntegrationSuite) TestConcurrentDeposits() {
	owner, _ := s.register("busy")
	account := s.open(owner, "")
	const n = 25

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ledgerSvc.Deposit(s.ctx, account.AccountID, owner, decimal.RequireFromString("2.00"))
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	s.True(s.balance(owner, account.AccountID).Equal(decimal.NewFromInt(2*n)))
	s.assertLedgerIdentity(account.AccountID)
}

func (s *PgsqlIntegrationSuite) TestConcurrentOpposingTransfers() {
	alice, aliceEmail := s.register("alice")
	bob, bobEmail := s.register("bob")
	a := s.open(alice, "100")
	b := s.open(bob, "100")
	const n = 10

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.ledgerSvc.Transfer(s.ctx, alice, dto.TransferRequest{ToEmail: bobEmail, Amount: decimal.NewFromInt(3)})
			assert.NoError(s.T(), err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.ledgerSvc.Transfer(s.ctx, bob, dto.TransferRequest{ToEmail: aliceEmail, Amount: decimal.NewFromInt(2)})
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	s.True(s.balance(alice, a.AccountID).Equal(decimal.NewFromInt(90)))
	s.True(s.balance(bob, b.AccountID).Equal(decimal.NewFromInt(110)))
	s.assertLedgerIdentity(a.AccountID, b.AccountID)
}

func (s *PgsqlIntegrationSuite) TestListTransactionsPaging() {
	owner, _ := s.register("pages")
	account := s.open(owner, "1")
	for i := 0; i < 4; i++ {
		_, err := s.ledgerSvc.Deposit(s.ctx, account.AccountID, owner, decimal.NewFromInt(1))
		s.Require().NoError(err)
	}

	seen := map[string]bool{}
	params := dto.ListTransactionsParams{Limit: 2}
	for {
		resp, err := s.ledgerSvc.ListTransactions(s.ctx, owner, params)
		s.Require().NoError(err)
		for _, t := range resp.Transactions {
			s.False(seen[t.TransactionID], "row returned twice")
			seen[t.TransactionID] = true
		}
		if resp.NextToken == nil {
			break
		}
		params.NextToken = *resp.NextToken
	}
	s.Len(seen, 5)
}

func TestPgsqlIntegration(t *testing.T) {
	suite.Run(t, new(PgsqlIntegrationSuite))
}
