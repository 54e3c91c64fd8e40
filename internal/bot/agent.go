package bot

import "blackjack/internal/domain"

// Agent is an autonomous seat filler. It plays the dealer policy: draw
// strictly below 17, stand at 17 or above. Good enough to keep a table
// moving while a lone human waits for opponents.
type Agent struct {
	ID   string
	Name string
}

// NewAgent constructs an agent for the given bot user id.
func NewAgent(id, name string) *Agent {
	return &Agent{ID: id, Name: name}
}

// Decide returns the agent's move for its current hand.
func (a *Agent) Decide(hand []domain.Card) domain.Action {
	if domain.HandTotal(hand) < domain.DealerStandTotal {
		return domain.ActionHit
	}
	return domain.ActionStand
}
