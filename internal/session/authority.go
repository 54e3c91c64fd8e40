package session

import (
	"context"
	"sync"

	"blackjack/internal/app"
	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// viewSink receives locally deliverable copies of outgoing views, so
// co-resident projections update without a transport round trip. Remote
// echoes of the same payloads are harmless: the version guard drops them.
type viewSink interface {
	deliverPublic(v *domain.PublicView)
	deliverPrivate(playerID string, v *domain.PrivateView)
	sessionEnded(sessionID string)
}

// HostAuthority owns the single writable copy of one session's state. All
// commands for the session serialize on its mutex, so racing submissions
// resolve inside the state machine's validity guards: the loser becomes a
// no-op because the turn already advanced or the seat is already done.
type HostAuthority struct {
	mu        sync.Mutex
	svc       *app.Service
	state     *domain.Session
	transport ports.Transport
	economy   ports.EconomyPort
	logger    runtime.Logger
	sink      viewSink
}

// HostSnapshot is the host's read-only control-surface view of the session.
type HostSnapshot struct {
	SessionID    string
	Stage        domain.Stage
	HostPlayerID string
	TurnPlayerID string
	MaxSeats     int
	Version      uint64
	Seats        []domain.SeatView
}

// OpenSeats reports how many more players may join. Zero outside the
// joinable stages so listings stop advertising sessions mid-round.
func (hs HostSnapshot) OpenSeats() int {
	if hs.Stage != domain.StageLobby && hs.Stage != domain.StageBetting {
		return 0
	}
	return hs.MaxSeats - len(hs.Seats)
}

// NewHostAuthority wires an authority around freshly created session state.
func NewHostAuthority(svc *app.Service, state *domain.Session, transport ports.Transport, economy ports.EconomyPort, logger runtime.Logger, sink viewSink) *HostAuthority {
	return &HostAuthority{
		svc:       svc,
		state:     state,
		transport: transport,
		economy:   economy,
		logger:    logger,
		sink:      sink,
	}
}

// SessionID returns the immutable session identifier.
func (a *HostAuthority) SessionID() string {
	return a.state.ID
}

// Announce emits the initial broadcast after session creation.
func (a *HostAuthority) Announce(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatch(ctx, a.svc.Announce(a.state))
}

// Join seats a player. Missing capacity or a closed stage is a silent no-op.
func (a *HostAuthority) Join(ctx context.Context, playerID, displayName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if events, ok := a.svc.Join(a.state, playerID, displayName); ok {
		a.dispatch(ctx, events)
	}
}

// Leave removes a player's seat; the host leaving ends the session.
func (a *HostAuthority) Leave(ctx context.Context, playerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if events, ok := a.svc.Leave(a.state, playerID); ok {
		a.dispatch(ctx, events)
	}
}

// StartBetting opens a betting round from Lobby or Results.
func (a *HostAuthority) StartBetting(ctx context.Context, actorID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if events, ok := a.svc.StartBetting(a.state, actorID); ok {
		a.dispatch(ctx, events)
	}
}

// NextRound starts the following betting round from Results.
func (a *HostAuthority) NextRound(ctx context.Context, actorID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if events, ok := a.svc.NextRound(a.state, actorID); ok {
		a.dispatch(ctx, events)
	}
}

// ConfirmBet records a bet during Betting; the last call before the deal wins.
func (a *HostAuthority) ConfirmBet(ctx context.Context, actorID string, amount int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if events, ok := a.svc.ConfirmBet(a.state, actorID, amount); ok {
		a.dispatch(ctx, events)
	}
}

// DealAndPlay deals the round and opens play.
func (a *HostAuthority) DealAndPlay(ctx context.Context, actorID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if events, ok := a.svc.DealAndPlay(a.state, actorID); ok {
		a.dispatch(ctx, events)
	}
}

// PlayerAction applies Hit or Stand for the acting player.
func (a *HostAuthority) PlayerAction(ctx context.Context, actorID string, action domain.Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if events, ok := a.svc.PlayerAction(a.state, actorID, action); ok {
		a.dispatch(ctx, events)
	}
}

// Ended reports whether the session reached its terminal stage.
func (a *HostAuthority) Ended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Stage == domain.StageEnded
}

// HasSeat reports whether the player currently occupies a seat.
func (a *HostAuthority) HasSeat(playerID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.SeatOf(playerID) != nil
}

// HostSnapshot returns a copy of the control-surface state.
func (a *HostAuthority) HostSnapshot() HostSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	view := domain.PublicViewOf(a.state)
	return HostSnapshot{
		SessionID:    a.state.ID,
		Stage:        a.state.Stage,
		HostPlayerID: a.state.HostPlayerID,
		TurnPlayerID: a.state.TurnPlayerID,
		MaxSeats:     a.state.MaxSeats,
		Version:      a.state.Version,
		Seats:        view.Seats,
	}
}

// dispatch fans events out: public views to the shell, private views
// point-to-point, settlements to the economy. Local projections are updated
// directly through the sink so the hosting peer never waits on its own
// transport.
func (a *HostAuthority) dispatch(ctx context.Context, events []app.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case app.EventPublicState:
			view := ev.Payload.(*domain.PublicView)
			if a.sink != nil {
				a.sink.deliverPublic(view)
			}
			payload, err := encodePublic(view)
			if err != nil {
				a.logger.Error("dispatch: failed to encode public view: %v", err)
				continue
			}
			if err := a.transport.SendToShell(ctx, a.state.HostShellID, OpPublicState, payload); err != nil {
				a.logger.Warn("dispatch: shell send failed for session %s: %v", a.state.ID, err)
			}
		case app.EventPrivateState:
			view := ev.Payload.(*domain.PrivateView)
			if a.sink != nil {
				a.sink.deliverPrivate(view.PlayerID, view)
			}
			payload, err := encodePrivate(view)
			if err != nil {
				a.logger.Error("dispatch: failed to encode private view: %v", err)
				continue
			}
			for _, peerID := range ev.Recipients {
				if err := a.transport.SendToPeer(ctx, peerID, OpPrivateState, payload); err != nil {
					a.logger.Warn("dispatch: peer send failed for %s: %v", peerID, err)
				}
			}
		case app.EventRoundSettled:
			a.settle(ctx, ev.Payload.(app.RoundSettledPayload))
		case app.EventSessionEnded:
			p := ev.Payload.(app.SessionEndedPayload)
			if a.sink != nil {
				a.sink.sessionEnded(p.SessionID)
			}
			payload, _ := encodeEnded(p.SessionID)
			if err := a.transport.SendToShell(ctx, a.state.HostShellID, OpSessionEnded, payload); err != nil {
				a.logger.Warn("dispatch: terminal send failed for session %s: %v", p.SessionID, err)
			}
		default:
			a.logger.Warn("dispatch: unknown event kind %q", ev.Kind)
		}
	}
}

func (a *HostAuthority) settle(ctx context.Context, p app.RoundSettledPayload) {
	if a.economy == nil {
		return
	}
	updates := make([]ports.WalletUpdate, 0, len(p.BalanceChanges))
	for playerID, amount := range p.BalanceChanges {
		if amount == 0 {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: playerID,
			Amount: amount,
			Metadata: map[string]interface{}{
				"session_id": p.SessionID,
				"reason":     "round_settlement",
			},
		})
	}
	if len(updates) == 0 {
		return
	}
	if err := a.economy.UpdateBalances(ctx, updates); err != nil {
		a.logger.Error("settle: failed to update balances for session %s: %v", p.SessionID, err)
	}
}
