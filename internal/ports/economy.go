package ports

import "context"

// WalletUpdate represents a single chip-balance change for a player.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort defines the interface for managing game currency.
type EconomyPort interface {
	// GetBalance retrieves the current chip balance for a user.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// UpdateBalances applies multiple wallet changes.
	// Used when a round resolves to settle all bets at once.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
