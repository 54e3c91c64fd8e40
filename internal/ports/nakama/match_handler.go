package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"

	"blackjack/internal/bot"
	"blackjack/internal/config"
	"blackjack/internal/domain"
	"blackjack/internal/session"

	"github.com/heroiclabs/nakama-common/runtime"
)

// tickRate is ticks per second. One tick per second keeps the second-based
// turn and bot timers trivial.
const tickRate = 1

// matchLabel is the JSON label advertised through the match listing API.
// list_invites queries on the game and open keys.
type matchLabel struct {
	Open     int    `json:"open"`
	Game     string `json:"game"`
	Stage    string `json:"stage"`
	HostName string `json:"host_name"`
}

// hostCommand wraps host-only op codes with the ownership token minted at
// session creation.
type hostCommand struct {
	HostToken string `json:"host_token"`
}

// confirmBetCommand carries the wager for the confirm-bet op code.
type confirmBetCommand struct {
	Amount int64 `json:"amount"`
}

// playerActionCommand carries a hit or stand for the player-action op code.
type playerActionCommand struct {
	Action string `json:"action"`
}

// MatchState is the per-match state threaded through the runtime callbacks.
// One match hosts exactly one blackjack session; the match id doubles as
// the session id.
type MatchState struct {
	Registry  *session.Registry
	Transport *dispatcherTransport
	Cfg       config.GameConfig

	SessionID      string
	ShellID        string
	ExpectedHostID string
	HostName       string

	// Turn timer. The key changes whenever the turn holder or state version
	// moves, which resets the deadline.
	TurnKey          string
	TurnDeadlineTick int64

	// Bot bookkeeping.
	Bots         map[string]*bot.Agent
	SoloSince    int64
	BotActAtTick int64

	LastLabel string
}

type matchHandler struct{}

func newMatchHandler() runtime.Match {
	return &matchHandler{}
}

func (m *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, err := config.FromRuntimeEnv(env)
	if err != nil {
		logger.Warn("MatchInit: config parse failed, using defaults: %v", err)
	}

	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("MatchInit: bot identities unavailable, using generated names: %v", err)
	}

	shellID, _ := params["shell_id"].(string)
	hostID, _ := params["host_user_id"].(string)
	hostName, _ := params["host_name"].(string)

	transport := newDispatcherTransport()
	registry := session.NewRegistry(transport, NewNakamaEconomyAdapter(nk), logger, cfg.MaxSeats)

	state := &MatchState{
		Registry:       registry,
		Transport:      transport,
		Cfg:            cfg,
		ShellID:        shellID,
		ExpectedHostID: hostID,
		HostName:       hostName,
		Bots:           make(map[string]*bot.Agent),
		SoloSince:      -1,
	}

	label, _ := json.Marshal(matchLabel{
		Open:     cfg.MaxSeats,
		Game:     "blackjack",
		Stage:    string(domain.StageLobby),
		HostName: hostName,
	})
	state.LastLabel = string(label)

	return state, tickRate, string(label)
}

func (m *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	s, ok := state.(*MatchState)
	if !ok {
		return state, false, "invalid match state"
	}

	// First join lands before the session exists; the handler creates it in
	// MatchJoin.
	if s.SessionID == "" {
		return s, true, ""
	}

	snap, ok := s.Registry.TryGetHosted(s.SessionID)
	if !ok {
		return s, false, "session has ended"
	}

	// Re-joins are always allowed while the seat survives.
	for _, seat := range snap.Seats {
		if seat.PlayerID == presence.GetUserId() {
			return s, true, ""
		}
	}

	if snap.Stage != domain.StageLobby && snap.Stage != domain.StageBetting {
		return s, false, "round in progress"
	}
	if snap.OpenSeats() == 0 && !m.hasBotSeat(snap) {
		return s, false, "session is full"
	}
	return s, true, ""
}

func (m *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}
	s.Transport.Bind(dispatcher)

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	for _, presence := range presences {
		s.Transport.Track(presence)
		userID := presence.GetUserId()

		if s.SessionID == "" {
			if s.ExpectedHostID != "" && userID != s.ExpectedHostID {
				logger.Warn("MatchJoin: user %s joined before host %s, waiting for host", userID, s.ExpectedHostID)
				continue
			}
			shellID := s.ShellID
			if shellID == "" {
				shellID = matchID
			}
			sessionID := s.Registry.HostWithID(ctx, matchID, session.PeerContext{
				ShellID:  shellID,
				PlayerID: userID,
				Username: presence.GetUsername(),
			})
			if sessionID == "" {
				logger.Error("MatchJoin: failed to create session for host %s", userID)
				continue
			}
			s.SessionID = sessionID
			if s.HostName == "" {
				s.HostName = presence.GetUsername()
			}
			logger.Info("MatchJoin: session %s hosted by %s", sessionID, userID)
			continue
		}

		// When seats are full but a bot holds one, the bot yields to the
		// human.
		if snap, ok := s.Registry.TryGetHosted(s.SessionID); ok && snap.OpenSeats() == 0 {
			m.evictOneBot(ctx, logger, s, snap)
		}

		s.Registry.Join(ctx, s.SessionID, session.PeerContext{
			ShellID:  s.ShellID,
			PlayerID: userID,
			Username: presence.GetUsername(),
		})
	}

	m.updateLabel(s, dispatcher)
	return s
}

func (m *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}
	s.Transport.Bind(dispatcher)

	for _, presence := range presences {
		userID := presence.GetUserId()
		s.Transport.Forget(userID)
		if s.SessionID == "" {
			continue
		}
		s.Registry.Leave(ctx, s.SessionID, userID)
	}

	// A host departure ends the session; terminate the match with it.
	if s.SessionID != "" {
		if _, ok := s.Registry.TryGetHosted(s.SessionID); !ok {
			logger.Info("MatchLeave: session %s ended, terminating match", s.SessionID)
			return nil
		}
	}

	m.updateLabel(s, dispatcher)
	return s
}

func (m *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}
	s.Transport.Bind(dispatcher)

	for _, msg := range messages {
		m.handleMessage(ctx, logger, s, msg)
	}

	if s.SessionID != "" {
		if _, ok := s.Registry.TryGetHosted(s.SessionID); !ok {
			logger.Info("MatchLoop: session %s ended, terminating match", s.SessionID)
			return nil
		}
		m.processTurnTimer(ctx, logger, s, tick)
		m.processBots(ctx, logger, s, tick)
	}

	m.updateLabel(s, dispatcher)
	return s
}

func (m *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}
	s.Transport.Bind(dispatcher)
	if snap, ok := s.Registry.TryGetHosted(s.SessionID); ok {
		// Removing the host ends the session and notifies peers; an
		// unfinished round is abandoned unsettled.
		s.Registry.Leave(ctx, s.SessionID, snap.HostPlayerID)
	}
	return nil
}

func (m *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

func (m *matchHandler) handleMessage(ctx context.Context, logger runtime.Logger, s *MatchState, msg runtime.MatchData) {
	if s.SessionID == "" {
		return
	}
	userID := msg.GetUserId()

	switch msg.GetOpCode() {
	case OpStartBetting:
		if !m.verifyHostOp(logger, s, userID, msg.GetData()) {
			return
		}
		s.Registry.StartBetting(ctx, s.SessionID, userID)
	case OpDealAndPlay:
		if !m.verifyHostOp(logger, s, userID, msg.GetData()) {
			return
		}
		s.Registry.DealAndPlay(ctx, s.SessionID, userID)
	case OpNextRound:
		if !m.verifyHostOp(logger, s, userID, msg.GetData()) {
			return
		}
		s.Registry.NextRound(ctx, s.SessionID, userID)
	case OpConfirmBet:
		var cmd confirmBetCommand
		if err := json.Unmarshal(msg.GetData(), &cmd); err != nil {
			logger.Warn("handleMessage: bad confirm_bet payload from %s: %v", userID, err)
			return
		}
		s.Registry.ConfirmBet(ctx, s.SessionID, userID, cmd.Amount)
	case OpPlayerAction:
		var cmd playerActionCommand
		if err := json.Unmarshal(msg.GetData(), &cmd); err != nil {
			logger.Warn("handleMessage: bad player_action payload from %s: %v", userID, err)
			return
		}
		switch domain.Action(cmd.Action) {
		case domain.ActionHit:
			s.Registry.PlayerAction(ctx, s.SessionID, userID, domain.ActionHit)
		case domain.ActionStand:
			s.Registry.PlayerAction(ctx, s.SessionID, userID, domain.ActionStand)
		default:
			logger.Warn("handleMessage: unknown action %q from %s", cmd.Action, userID)
		}
	default:
		logger.Warn("handleMessage: unknown op code %d from %s", msg.GetOpCode(), userID)
	}
}

// verifyHostOp checks the host token attached to a host-only command. The
// engine re-checks actor identity anyway; the token stops a spoofed sender
// id at the transport edge.
func (m *matchHandler) verifyHostOp(logger runtime.Logger, s *MatchState, userID string, data []byte) bool {
	secret := s.Cfg.HostTokenSecret
	if secret == "" {
		secret = "insecure-dev-secret"
	}

	var cmd hostCommand
	if err := json.Unmarshal(data, &cmd); err != nil || cmd.HostToken == "" {
		logger.Warn("verifyHostOp: missing host token from %s", userID)
		return false
	}
	sid, uid, err := verifyHostToken(secret, cmd.HostToken)
	if err != nil {
		logger.Warn("verifyHostOp: invalid host token from %s: %v", userID, err)
		return false
	}
	if sid != s.SessionID || uid != userID {
		logger.Warn("verifyHostOp: host token mismatch from %s", userID)
		return false
	}
	return true
}

// processTurnTimer forces a Stand on a seat that has held the turn for the
// configured duration without acting. Any state change resets the clock.
func (m *matchHandler) processTurnTimer(ctx context.Context, logger runtime.Logger, s *MatchState, tick int64) {
	snap, ok := s.Registry.TryGetHosted(s.SessionID)
	if !ok || snap.Stage != domain.StagePlaying || snap.TurnPlayerID == "" {
		s.TurnKey = ""
		return
	}

	key := fmt.Sprintf("%s:%d", snap.TurnPlayerID, snap.Version)
	if key != s.TurnKey {
		s.TurnKey = key
		s.TurnDeadlineTick = tick + int64(s.Cfg.TurnDurationSeconds)*tickRate
		return
	}
	if tick >= s.TurnDeadlineTick {
		logger.Info("processTurnTimer: forcing stand for idle player %s", snap.TurnPlayerID)
		s.Registry.PlayerAction(ctx, s.SessionID, snap.TurnPlayerID, domain.ActionStand)
		s.TurnKey = ""
	}
}

// processBots fills empty seats with bots when the host sits alone in the
// lobby, confirms bot bets, and plays bot turns on a short random delay.
func (m *matchHandler) processBots(ctx context.Context, logger runtime.Logger, s *MatchState, tick int64) {
	if !s.Cfg.BotsEnabled {
		return
	}
	snap, ok := s.Registry.TryGetHosted(s.SessionID)
	if !ok {
		return
	}

	switch snap.Stage {
	case domain.StageLobby:
		m.autoFillBots(ctx, logger, s, snap, tick)
	case domain.StageBetting:
		for _, seat := range snap.Seats {
			if bot.IsBot(seat.PlayerID) && !seat.BetConfirmed {
				s.Registry.ConfirmBet(ctx, s.SessionID, seat.PlayerID, s.Cfg.BotBet)
			}
		}
	case domain.StagePlaying:
		m.playBotTurn(ctx, logger, s, snap, tick)
	}
}

func (m *matchHandler) autoFillBots(ctx context.Context, logger runtime.Logger, s *MatchState, snap session.HostSnapshot, tick int64) {
	humans := 0
	for _, seat := range snap.Seats {
		if !bot.IsBot(seat.PlayerID) {
			humans++
		}
	}
	if humans != 1 || snap.OpenSeats() == 0 {
		s.SoloSince = -1
		return
	}

	if s.SoloSince < 0 {
		s.SoloSince = tick
		return
	}
	if tick-s.SoloSince < int64(s.Cfg.BotAutoFillDelaySeconds)*tickRate {
		return
	}

	open := snap.OpenSeats()
	base := len(snap.Seats)
	for i := 0; i < open; i++ {
		identity := bot.GetBotIdentity(base + i)
		s.Registry.Join(ctx, s.SessionID, session.PeerContext{
			ShellID:  s.ShellID,
			PlayerID: identity.UserID,
			Username: identity.DisplayName,
		})
		s.Bots[identity.UserID] = bot.NewAgent(identity.UserID, identity.DisplayName)
		logger.Info("autoFillBots: seated bot %s in session %s", identity.UserID, s.SessionID)
	}
	s.SoloSince = -1
}

func (m *matchHandler) playBotTurn(ctx context.Context, logger runtime.Logger, s *MatchState, snap session.HostSnapshot, tick int64) {
	if !bot.IsBot(snap.TurnPlayerID) {
		s.BotActAtTick = 0
		return
	}
	if s.BotActAtTick == 0 {
		minDelay := int64(s.Cfg.BotMinDelaySeconds) * tickRate
		maxDelay := int64(s.Cfg.BotMaxDelaySeconds) * tickRate
		delay := minDelay
		if maxDelay > minDelay {
			delay += rand.Int63n(maxDelay - minDelay + 1)
		}
		s.BotActAtTick = tick + delay
		return
	}
	if tick < s.BotActAtTick {
		return
	}
	s.BotActAtTick = 0

	agent, ok := s.Bots[snap.TurnPlayerID]
	if !ok {
		agent = bot.NewAgent(snap.TurnPlayerID, bot.GetBotUsername(snap.TurnPlayerID))
		s.Bots[snap.TurnPlayerID] = agent
	}

	// Bots observe their own hand through the same projection path as a
	// connected client.
	client, ok := s.Registry.TryGetClient(s.SessionID, snap.TurnPlayerID)
	if !ok || client.Private == nil {
		s.Registry.PlayerAction(ctx, s.SessionID, snap.TurnPlayerID, domain.ActionStand)
		return
	}
	action := agent.Decide(client.Private.Hand)
	s.Registry.PlayerAction(ctx, s.SessionID, snap.TurnPlayerID, action)
}

// evictOneBot removes a single lobby bot to free a seat for a joining human.
func (m *matchHandler) evictOneBot(ctx context.Context, logger runtime.Logger, s *MatchState, snap session.HostSnapshot) {
	if snap.Stage != domain.StageLobby && snap.Stage != domain.StageBetting {
		return
	}
	for _, seat := range snap.Seats {
		if bot.IsBot(seat.PlayerID) {
			s.Registry.Leave(ctx, s.SessionID, seat.PlayerID)
			delete(s.Bots, seat.PlayerID)
			logger.Info("evictOneBot: bot %s yielded its seat in session %s", seat.PlayerID, s.SessionID)
			return
		}
	}
}

func (m *matchHandler) hasBotSeat(snap session.HostSnapshot) bool {
	if snap.Stage != domain.StageLobby && snap.Stage != domain.StageBetting {
		return false
	}
	for _, seat := range snap.Seats {
		if bot.IsBot(seat.PlayerID) {
			return true
		}
	}
	return false
}

// updateLabel republishes the match label when open seats or stage changed.
func (m *matchHandler) updateLabel(s *MatchState, dispatcher runtime.MatchDispatcher) {
	if s.SessionID == "" {
		return
	}
	snap, ok := s.Registry.TryGetHosted(s.SessionID)
	if !ok {
		return
	}
	label, err := json.Marshal(matchLabel{
		Open:     snap.OpenSeats(),
		Game:     "blackjack",
		Stage:    string(snap.Stage),
		HostName: s.HostName,
	})
	if err != nil || string(label) == s.LastLabel {
		return
	}
	if dispatcher.MatchLabelUpdate(string(label)) == nil {
		s.LastLabel = string(label)
	}
}
