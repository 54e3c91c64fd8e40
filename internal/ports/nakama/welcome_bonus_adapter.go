package nakama

import (
	"context"
	"fmt"
	"strings"

	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	welcomeBonusCollection = "onboarding"
	welcomeBonusKey        = "welcome_bonus"
)

// NakamaWelcomeBonusAdapter grants the starting bankroll exactly once per
// user. A storage write with a wildcard version acts as the claim marker;
// the marker write and the wallet credit commit atomically via MultiUpdate.
type NakamaWelcomeBonusAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaWelcomeBonusAdapter creates a new welcome bonus adapter.
func NewNakamaWelcomeBonusAdapter(nk runtime.NakamaModule) *NakamaWelcomeBonusAdapter {
	return &NakamaWelcomeBonusAdapter{nk: nk}
}

// GrantWelcomeBonusOnce credits the bonus if this user has never claimed it.
// Returns false with a nil error when the bonus was already granted.
func (a *NakamaWelcomeBonusAdapter) GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	marker := &runtime.StorageWrite{
		Collection:      welcomeBonusCollection,
		Key:             welcomeBonusKey,
		UserID:          userID,
		Value:           `{"granted":true}`,
		Version:         "*",
		PermissionRead:  1,
		PermissionWrite: 0,
	}

	walletUpdate := &runtime.WalletUpdate{
		UserID:    userID,
		Changeset: map[string]int64{"chips": amount},
		Metadata:  metadata,
	}

	_, _, err := a.nk.MultiUpdate(ctx, nil, []*runtime.StorageWrite{marker}, nil, []*runtime.WalletUpdate{walletUpdate}, true)
	if err != nil {
		// A rejected marker version means the bonus was claimed before.
		if strings.Contains(err.Error(), "version check failed") || err == runtime.ErrStorageRejectedVersion {
			return false, nil
		}
		return false, fmt.Errorf("failed to grant welcome bonus: %w", err)
	}

	return true, nil
}

var _ ports.WelcomeBonusPort = (*NakamaWelcomeBonusAdapter)(nil)
