package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"blackjack/internal/ports"
)

// defaultStartingChips is the one-time bankroll granted to new accounts so
// they can sit at a table immediately.
const defaultStartingChips = 10000

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
	// ChipsGranted is false when the starting bankroll was already granted.
	ChipsGranted bool
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	bonus    ports.WelcomeBonusPort
	rng      *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts/bonus must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, bonus ports.WelcomeBonusPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		bonus:    bonus,
		rng:      rng,
	}
}

// OnboardNewUser initializes profile and bankroll for a newly created
// account. Profile updates are best-effort; the chip grant is what matters.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.bonus == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{}
	displayName := s.generateFriendlyName()
	if err := s.accounts.UpdateProfile(ctx, userID, displayName, displayName); err != nil {
		result.ProfileUpdateErr = err
	}

	granted, err := s.bonus.GrantWelcomeBonusOnce(ctx, userID, defaultStartingChips, map[string]interface{}{
		"reason": "starting_chips",
	})
	if err != nil {
		return result, fmt.Errorf("failed to grant starting chips: %w", err)
	}
	result.ChipsGranted = granted

	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Lucky", "Bold", "Quiet", "Swift", "Sly", "Cool", "Sharp", "Wild", "Calm", "Keen"}
	nouns := []string{"Ace", "Deuce", "Jack", "Queen", "King", "Joker", "Dealer", "Shark", "Whale", "Maverick"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
