package services

import (
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// publisher may be nil, in which case no ledger events are emitted.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, publisher portssvc.EventPublisher) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo)

	container.Account = NewAccountService(
		repos.AccountRepo,
		WithAccountOpTimeout(cfg.LedgerOpTimeout),
	)

	ledgerOpts := []LedgerServiceOption{WithLedgerOpTimeout(cfg.LedgerOpTimeout)}
	if publisher != nil {
		ledgerOpts = append(ledgerOpts, WithEventPublisher(publisher))
	}
	// The user service doubles as the recipient directory.
	container.Ledger = NewLedgerService(repos, container.User, ledgerOpts...)

	return container
}
