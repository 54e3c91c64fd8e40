package domain

// Stage represents the lifecycle stage of a game session.
type Stage string

const (
	// StageLobby is the pre-game state where players can join freely.
	StageLobby Stage = "lobby"
	// StageBetting is the state where seated players place bets.
	StageBetting Stage = "betting"
	// StagePlaying is the active round state where cards are in play.
	StagePlaying Stage = "playing"
	// StageResults is the post-round state with outcomes revealed.
	StageResults Stage = "results"
	// StageEnded is the terminal state after the host leaves or ends the session.
	StageEnded Stage = "ended"
)

// Outcome is a seat's result for a resolved round.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomePush Outcome = "push"
	OutcomeLose Outcome = "lose"
)

// Action is a player's move during their turn.
type Action string

const (
	ActionHit   Action = "hit"
	ActionStand Action = "stand"
)

// KindBlackjack identifies the blackjack game kind.
const KindBlackjack = "blackjack"

// Seat holds the state for one participating player.
type Seat struct {
	PlayerID     string
	DisplayName  string
	Order        int
	Bet          int64
	BetConfirmed bool
	Hand         []Card
	Done         bool
	Bust         bool
	Outcome      Outcome
	Payout       int64
}

// DealerState holds the dealer's hand. The card at HoleIndex stays hidden
// from everyone but the host until Revealed is set at round resolution.
type DealerState struct {
	Hand      []Card
	HoleIndex int
	Revealed  bool
}

// UpCards returns the dealer cards that are publicly visible.
func (d *DealerState) UpCards() []Card {
	if d.Revealed {
		return d.Hand
	}
	up := make([]Card, 0, len(d.Hand))
	for i, c := range d.Hand {
		if i == d.HoleIndex {
			continue
		}
		up = append(up, c)
	}
	return up
}

// HoleCard returns the hidden dealer card, or false if none is dealt.
func (d *DealerState) HoleCard() (Card, bool) {
	if d.HoleIndex < 0 || d.HoleIndex >= len(d.Hand) {
		return 0, false
	}
	return d.Hand[d.HoleIndex], true
}

// Session is the authoritative state for one hosted game session. Exactly one
// HostAuthority owns a writable Session; everything else sees derived views.
type Session struct {
	ID           string
	Kind         string
	HostShellID  string
	HostPlayerID string
	Stage        Stage
	Seats        []*Seat
	Dealer       DealerState
	MaxSeats     int

	// TurnPlayerID is the seat currently holding the turn, "" when no turn
	// is open (outside StagePlaying, or once the round is being resolved).
	TurnPlayerID string

	// Shoe is the undealt remainder of the round's shuffled deck. Dealing
	// always pops from the front, so cards never repeat within a round.
	Shoe []Card

	// Version counts broadcasts; every mutation bumps it before views go out.
	Version uint64
}

// SeatOf returns the seat occupied by the given player, or nil.
func (s *Session) SeatOf(playerID string) *Seat {
	for _, seat := range s.Seats {
		if seat.PlayerID == playerID {
			return seat
		}
	}
	return nil
}

// Draw pops the next card from the shoe. ok is false when the shoe is empty.
func (s *Session) Draw() (Card, bool) {
	if len(s.Shoe) == 0 {
		return 0, false
	}
	c := s.Shoe[0]
	s.Shoe = s.Shoe[1:]
	return c, true
}

// NextOpenSeat returns the first seat with an open turn at or after the given
// order, scanning forward only. Returns nil when the round has no open seat
// left, which triggers dealer resolution.
func (s *Session) NextOpenSeat(fromOrder int) *Seat {
	for _, seat := range s.Seats {
		if seat.Order >= fromOrder && !seat.Done {
			return seat
		}
	}
	return nil
}

// ResetRound clears all round-scoped state on every transition into Betting.
func (s *Session) ResetRound() {
	for _, seat := range s.Seats {
		seat.Bet = 0
		seat.BetConfirmed = false
		seat.Hand = nil
		seat.Done = false
		seat.Bust = false
		seat.Outcome = ""
		seat.Payout = 0
	}
	s.Dealer = DealerState{HoleIndex: -1}
	s.Shoe = nil
	s.TurnPlayerID = ""
}

// Reindex renumbers seat order after a removal so order stays dense.
func (s *Session) Reindex() {
	for i, seat := range s.Seats {
		seat.Order = i
	}
}
