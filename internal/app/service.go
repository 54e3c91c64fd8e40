package app

import (
	"math/rand"
	"time"

	"blackjack/internal/domain"
)

// Service contains the blackjack session use-cases operating on domain state.
//
// Every command is total: a command arriving in the wrong stage, or naming an
// unknown actor, returns ok=false and leaves the state untouched. Duplicate
// and racing submissions from multiple peers are expected traffic, so invalid
// combinations are silent no-ops, never errors.
type Service struct {
	rng      *rand.Rand
	maxSeats int
}

// NewService constructs a Service with the provided rng or a time-seeded
// default. maxSeats <= 0 falls back to four seats.
func NewService(rng *rand.Rand, maxSeats int) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if maxSeats <= 0 {
		maxSeats = 4
	}
	return &Service{rng: rng, maxSeats: maxSeats}
}

// NewSession creates a Lobby-stage session with the host in the first seat.
func (s *Service) NewSession(id, shellID, hostID, hostName string) *domain.Session {
	sess := &domain.Session{
		ID:           id,
		Kind:         domain.KindBlackjack,
		HostShellID:  shellID,
		HostPlayerID: hostID,
		Stage:        domain.StageLobby,
		MaxSeats:     s.maxSeats,
		Dealer:       domain.DealerState{HoleIndex: -1},
	}
	sess.Seats = append(sess.Seats, &domain.Seat{
		PlayerID:    hostID,
		DisplayName: hostName,
		Order:       0,
	})
	return sess
}

// Announce emits the initial view broadcast for a freshly created session.
func (s *Service) Announce(sess *domain.Session) []Event {
	return s.broadcast(sess)
}

// Join seats a player if the stage allows it and capacity remains. A player
// already seated keeps their seat; the rebroadcast refreshes their views
// after a reconnect.
func (s *Service) Join(sess *domain.Session, playerID, displayName string) ([]Event, bool) {
	if playerID == "" {
		return nil, false
	}
	if sess.SeatOf(playerID) != nil {
		return s.broadcast(sess), true
	}
	if sess.Stage != domain.StageLobby && sess.Stage != domain.StageBetting {
		return nil, false
	}
	if len(sess.Seats) >= sess.MaxSeats {
		return nil, false
	}
	sess.Seats = append(sess.Seats, &domain.Seat{
		PlayerID:    playerID,
		DisplayName: displayName,
		Order:       len(sess.Seats),
	})
	return s.broadcast(sess), true
}

// Leave removes the player's seat in any stage. The host leaving forces the
// session to Ended and emits a terminal broadcast so no peer waits forever.
func (s *Service) Leave(sess *domain.Session, playerID string) ([]Event, bool) {
	seat := sess.SeatOf(playerID)
	if seat == nil || sess.Stage == domain.StageEnded {
		return nil, false
	}

	if playerID == sess.HostPlayerID {
		sess.Stage = domain.StageEnded
		sess.TurnPlayerID = ""
		events := s.broadcast(sess)
		return append(events, Event{
			Kind:    EventSessionEnded,
			Payload: SessionEndedPayload{SessionID: sess.ID},
		}), true
	}

	leftOrder := seat.Order
	hadTurn := sess.TurnPlayerID == playerID
	for i, st := range sess.Seats {
		if st.PlayerID == playerID {
			sess.Seats = append(sess.Seats[:i], sess.Seats[i+1:]...)
			break
		}
	}
	sess.Reindex()

	events := []Event{}
	if sess.Stage == domain.StagePlaying {
		if hadTurn {
			if next := sess.NextOpenSeat(leftOrder); next != nil {
				sess.TurnPlayerID = next.PlayerID
			} else {
				sess.TurnPlayerID = ""
			}
		}
		if sess.NextOpenSeat(0) == nil {
			events = append(events, s.resolveDealer(sess)...)
		}
	}
	return append(s.broadcast(sess), events...), true
}

// StartBetting transitions Lobby or Results into Betting, clearing every
// seat's round state. Host only; any other combination is a no-op.
func (s *Service) StartBetting(sess *domain.Session, actorID string) ([]Event, bool) {
	if actorID != sess.HostPlayerID {
		return nil, false
	}
	if sess.Stage != domain.StageLobby && sess.Stage != domain.StageResults {
		return nil, false
	}
	sess.ResetRound()
	sess.Stage = domain.StageBetting
	return s.broadcast(sess), true
}

// NextRound is behaviorally identical to StartBetting, valid from Results.
func (s *Service) NextRound(sess *domain.Session, actorID string) ([]Event, bool) {
	if sess.Stage != domain.StageResults {
		return nil, false
	}
	return s.StartBetting(sess, actorID)
}

// ConfirmBet records a seat's bet during Betting. Negative amounts clamp to
// zero; repeated calls are allowed and the last one before dealing wins.
func (s *Service) ConfirmBet(sess *domain.Session, actorID string, amount int64) ([]Event, bool) {
	if sess.Stage != domain.StageBetting {
		return nil, false
	}
	seat := sess.SeatOf(actorID)
	if seat == nil {
		return nil, false
	}
	if amount < 0 {
		amount = 0
	}
	seat.Bet = amount
	seat.BetConfirmed = true
	return s.broadcast(sess), true
}

// DealAndPlay transitions Betting into Playing: two cards per confirmed seat,
// two for the dealer with the second held as the hole card. Unconfirmed seats
// sit the round out. Host only; requires at least one confirmed bet.
func (s *Service) DealAndPlay(sess *domain.Session, actorID string) ([]Event, bool) {
	if actorID != sess.HostPlayerID || sess.Stage != domain.StageBetting {
		return nil, false
	}
	confirmed := 0
	for _, seat := range sess.Seats {
		if seat.BetConfirmed {
			confirmed++
		}
	}
	if confirmed == 0 {
		return nil, false
	}

	sess.Shoe = domain.ShuffledDeck(s.rng)
	for _, seat := range sess.Seats {
		if !seat.BetConfirmed {
			seat.Done = true
			continue
		}
		seat.Hand = nil
		for i := 0; i < 2; i++ {
			if c, ok := sess.Draw(); ok {
				seat.Hand = append(seat.Hand, c)
			}
		}
	}
	sess.Dealer = domain.DealerState{HoleIndex: 1}
	for i := 0; i < 2; i++ {
		if c, ok := sess.Draw(); ok {
			sess.Dealer.Hand = append(sess.Dealer.Hand, c)
		}
	}

	sess.Stage = domain.StagePlaying
	var events []Event
	if first := sess.NextOpenSeat(0); first != nil {
		sess.TurnPlayerID = first.PlayerID
	} else {
		events = s.resolveDealer(sess)
	}
	return append(s.broadcast(sess), events...), true
}

// PlayerAction applies Hit or Stand for the seat currently holding the turn.
// A Hit that busts marks the seat Bust and Done; a non-busting Hit keeps the
// turn on the same seat. The turn then moves to the next seat in order that
// is not Done, never wrapping around; once none remain the dealer resolves.
func (s *Service) PlayerAction(sess *domain.Session, actorID string, action domain.Action) ([]Event, bool) {
	if sess.Stage != domain.StagePlaying || sess.TurnPlayerID != actorID {
		return nil, false
	}
	seat := sess.SeatOf(actorID)
	if seat == nil || seat.Done {
		return nil, false
	}

	switch action {
	case domain.ActionHit:
		c, ok := sess.Draw()
		if !ok {
			seat.Done = true
			break
		}
		seat.Hand = append(seat.Hand, c)
		if domain.IsBust(seat.Hand) {
			seat.Bust = true
			seat.Done = true
		}
	case domain.ActionStand:
		seat.Done = true
	default:
		return nil, false
	}

	var events []Event
	if next := sess.NextOpenSeat(seat.Order); next != nil {
		sess.TurnPlayerID = next.PlayerID
	} else {
		events = s.resolveDealer(sess)
	}
	return append(s.broadcast(sess), events...), true
}

// resolveDealer plays out the dealer hand and settles the round: the dealer
// draws strictly below 17 and stops at 17 or above, the hole card is
// revealed, and each confirmed seat receives its outcome and payout.
func (s *Service) resolveDealer(sess *domain.Session) []Event {
	for domain.DealerShouldDraw(sess.Dealer.Hand) {
		c, ok := sess.Draw()
		if !ok {
			break
		}
		sess.Dealer.Hand = append(sess.Dealer.Hand, c)
	}
	sess.Dealer.Revealed = true

	dealerTotal := domain.HandTotal(sess.Dealer.Hand)
	dealerBust := dealerTotal > domain.BustThreshold

	changes := make(map[string]int64)
	for _, seat := range sess.Seats {
		if !seat.BetConfirmed {
			continue
		}
		total := domain.HandTotal(seat.Hand)
		switch {
		case seat.Bust:
			seat.Outcome = domain.OutcomeLose
			seat.Payout = 0
		case dealerBust || total > dealerTotal:
			seat.Outcome = domain.OutcomeWin
			seat.Payout = 2 * seat.Bet
		case total == dealerTotal:
			seat.Outcome = domain.OutcomePush
			seat.Payout = seat.Bet
		default:
			seat.Outcome = domain.OutcomeLose
			seat.Payout = 0
		}
		changes[seat.PlayerID] = seat.Payout - seat.Bet
	}

	sess.Stage = domain.StageResults
	sess.TurnPlayerID = ""

	if len(changes) == 0 {
		return nil
	}
	return []Event{{
		Kind:    EventRoundSettled,
		Payload: RoundSettledPayload{SessionID: sess.ID, BalanceChanges: changes},
	}}
}

// broadcast recomputes all views from scratch under a fresh version: one
// public event for the shell plus one private event per seated player.
func (s *Service) broadcast(sess *domain.Session) []Event {
	sess.Version++
	events := []Event{{
		Kind:    EventPublicState,
		Payload: domain.PublicViewOf(sess),
	}}
	for _, seat := range sess.Seats {
		if view := domain.PrivateViewOf(sess, seat.PlayerID); view != nil {
			events = append(events, Event{
				Kind:       EventPrivateState,
				Payload:    view,
				Recipients: []string{seat.PlayerID},
			})
		}
	}
	return events
}
