package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/oldrooster/simple-budget/internal/database/repository"
)

// Resolver discovers accounts and payees from staged rows before
// reconciliation runs.
type Resolver struct {
	Accounts *repository.AccountRepo
	Payees   *repository.PayeeRepo
	Staging  *repository.StagingRepo
	Log      zerolog.Logger
}

// Resolve runs account discovery, payee discovery, then purges the staged
// rows whose kind is not the transaction kind. They have served their
// purpose and are not retained for reconciliation.
func (r *Resolver) Resolve(ctx context.Context) error {
	accounts, err := r.Accounts.DiscoverFromStaging(ctx)
	if err != nil {
		return fmt.Errorf("resolve accounts: %w", err)
	}
	r.Log.Info().Int64("created", accounts).Msg("process accounts")

	payees, err := r.Payees.DiscoverFromStaging(ctx)
	if err != nil {
		return fmt.Errorf("resolve payees: %w", err)
	}
	r.Log.Info().Int64("created", payees).Msg("process payees")

	if err := r.Staging.PurgeNonTransaction(ctx); err != nil {
		return fmt.Errorf("purge staging: %w", err)
	}
	return nil
}
