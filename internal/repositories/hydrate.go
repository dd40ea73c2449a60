package repositories

import (
	"context"

	"poolguard/internal/graph"
)

// HydrateGraph rebuilds the in-memory collusion graph from the durable
// contribution ledger, typically at startup.
func HydrateGraph(ctx context.Context, users UserRepository, funds FundRepository, store *graph.Store) error {
	userIDs, err := users.ListActiveIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range userIDs {
		store.AddUser(id)
	}

	fundIDs, err := funds.ListFundIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range fundIDs {
		store.AddFund(id)
	}

	contributions, err := funds.ListAllContributions(ctx)
	if err != nil {
		return err
	}
	for _, c := range contributions {
		edge := graph.Edge{UserID: c.UserID, FundID: c.FundID, Amount: c.Amount, At: c.CreatedAt}
		if err := store.AddContribution(edge); err != nil {
			// Contributions from deactivated users stay in the ledger but
			// have no live graph node; skip them.
			continue
		}
	}
	return nil
}
