package session

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"blackjack/internal/app"
	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// PeerContext identifies the acting peer: which shell the action happens in
// and which player performs it. A context missing either id is invalid and
// cannot host or join sessions.
type PeerContext struct {
	ShellID  string
	PlayerID string
	Username string
}

// Valid reports whether the context names both a shell and a player.
func (pc PeerContext) Valid() bool {
	return pc.ShellID != "" && pc.PlayerID != ""
}

// Registry maps session ids to hosted authorities and observed projections.
// The registry lock guards only the maps; each session serializes its own
// commands on the authority's lock, so independent sessions never contend.
// The registry lock is always released before a command enters an authority.
type Registry struct {
	mu          sync.RWMutex
	authorities map[string]*HostAuthority
	projections map[string]map[string]*Projection // sessionID -> viewerID

	invites   *InviteDirectory
	transport ports.Transport
	economy   ports.EconomyPort
	logger    runtime.Logger
	maxSeats  int
}

// NewRegistry creates a registry bound to the peer's transport and economy.
// economy may be nil when settlement is handled elsewhere.
func NewRegistry(transport ports.Transport, economy ports.EconomyPort, logger runtime.Logger, maxSeats int) *Registry {
	return &Registry{
		authorities: make(map[string]*HostAuthority),
		projections: make(map[string]map[string]*Projection),
		invites:     NewInviteDirectory(),
		transport:   transport,
		economy:     economy,
		logger:      logger,
		maxSeats:    maxSeats,
	}
}

// Host creates a Lobby-stage session with the caller as host and first seat,
// publishes its invite, and returns the new session id. Returns "" when the
// caller's shell context is invalid.
func (r *Registry) Host(ctx context.Context, peer PeerContext) string {
	return r.HostWithID(ctx, uuid.NewString(), peer)
}

// HostWithID hosts under a caller-chosen id, for transports whose channel
// identity doubles as the session id. Hosting an id that already exists
// returns "" rather than displacing the existing authority.
func (r *Registry) HostWithID(ctx context.Context, sessionID string, peer PeerContext) string {
	if !peer.Valid() || sessionID == "" {
		return ""
	}

	svc := app.NewService(rand.New(rand.NewSource(time.Now().UnixNano())), r.maxSeats)
	state := svc.NewSession(sessionID, peer.ShellID, peer.PlayerID, peer.Username)
	authority := NewHostAuthority(svc, state, r.transport, r.economy, r.logger, r)

	r.mu.Lock()
	if _, exists := r.authorities[sessionID]; exists {
		r.mu.Unlock()
		r.logger.Warn("Host: session %s already exists", sessionID)
		return ""
	}
	r.authorities[sessionID] = authority
	r.trackLocked(sessionID, peer.PlayerID)
	r.mu.Unlock()

	r.invites.Publish(Invite{
		ID:        uuid.New(),
		SessionID: sessionID,
		Kind:      domain.KindBlackjack,
		HostName:  peer.Username,
		CreatedAt: time.Now(),
	})

	authority.Announce(ctx)
	r.logger.Info("Host: session %s created by %s in shell %s", sessionID, peer.PlayerID, peer.ShellID)
	return sessionID
}

// Join seats the caller in a locally hosted session. Unknown sessions, full
// tables and closed stages are silent no-ops; rejoining refreshes the
// caller's views.
func (r *Registry) Join(ctx context.Context, sessionID string, peer PeerContext) {
	if !peer.Valid() {
		return
	}
	authority := r.lookup(sessionID)
	if authority == nil {
		return
	}
	r.mu.Lock()
	r.trackLocked(sessionID, peer.PlayerID)
	r.mu.Unlock()
	authority.Join(ctx, peer.PlayerID, peer.Username)
}

// Leave removes the caller's seat. When the host leaves, the session ends,
// a terminal broadcast goes out, and the authority is torn down.
func (r *Registry) Leave(ctx context.Context, sessionID, playerID string) {
	authority := r.lookup(sessionID)
	if authority == nil {
		return
	}
	authority.Leave(ctx, playerID)
	if authority.Ended() {
		r.mu.Lock()
		delete(r.authorities, sessionID)
		r.mu.Unlock()
		r.invites.Remove(sessionID)
	}
}

// StartBetting forwards the host command to the session's authority.
func (r *Registry) StartBetting(ctx context.Context, sessionID, actorID string) {
	if authority := r.lookup(sessionID); authority != nil {
		authority.StartBetting(ctx, actorID)
	}
}

// NextRound forwards the host command to the session's authority.
func (r *Registry) NextRound(ctx context.Context, sessionID, actorID string) {
	if authority := r.lookup(sessionID); authority != nil {
		authority.NextRound(ctx, actorID)
	}
}

// ConfirmBet forwards the bet to the session's authority.
func (r *Registry) ConfirmBet(ctx context.Context, sessionID, actorID string, amount int64) {
	if authority := r.lookup(sessionID); authority != nil {
		authority.ConfirmBet(ctx, actorID, amount)
	}
}

// DealAndPlay forwards the host command to the session's authority.
func (r *Registry) DealAndPlay(ctx context.Context, sessionID, actorID string) {
	if authority := r.lookup(sessionID); authority != nil {
		authority.DealAndPlay(ctx, actorID)
	}
}

// PlayerAction forwards Hit or Stand to the session's authority.
func (r *Registry) PlayerAction(ctx context.Context, sessionID, actorID string, action domain.Action) {
	if authority := r.lookup(sessionID); authority != nil {
		authority.PlayerAction(ctx, actorID, action)
	}
}

// TryGetHosted returns the host control surface for a locally hosted session.
func (r *Registry) TryGetHosted(sessionID string) (HostSnapshot, bool) {
	authority := r.lookup(sessionID)
	if authority == nil {
		return HostSnapshot{}, false
	}
	return authority.HostSnapshot(), true
}

// TryGetClient returns the viewer's cached snapshot for a session, hosted
// here or observed remotely. found is false when the viewer has no
// projection yet; a found snapshot may still be empty before the first
// broadcast lands.
func (r *Registry) TryGetClient(sessionID, viewerID string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	viewers, ok := r.projections[sessionID]
	if !ok {
		return Snapshot{}, false
	}
	proj, ok := viewers[viewerID]
	if !ok {
		return Snapshot{}, false
	}
	return proj.Snapshot(), true
}

// Track registers the viewer's projection for a session, typically when the
// viewer accepts an invite for a remotely hosted session.
func (r *Registry) Track(sessionID, viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackLocked(sessionID, viewerID)
}

// Invites lists pending invites visible to the viewer. Invites for ended
// local sessions are pruned; sessions the viewer already joined are hidden.
func (r *Registry) Invites(viewerID string) []Invite {
	alive := func(sessionID string) bool {
		authority := r.lookup(sessionID)
		if authority == nil {
			// Remote session; pruned when its terminal notice arrives.
			return true
		}
		return !authority.Ended()
	}
	joined := func(sessionID string) bool {
		if authority := r.lookup(sessionID); authority != nil {
			return authority.HasSeat(viewerID)
		}
		snap, ok := r.TryGetClient(sessionID, viewerID)
		return ok && snap.Private != nil
	}
	return r.invites.List(alive, joined)
}

// HandleShellMessage is the receive path for group payloads: public views,
// invites and terminal notices. Stale versions are dropped by projections.
func (r *Registry) HandleShellMessage(opCode int64, payload []byte) {
	switch opCode {
	case OpPublicState:
		view, err := decodePublic(payload)
		if err != nil {
			r.logger.Warn("HandleShellMessage: bad public payload: %v", err)
			return
		}
		r.deliverPublic(view)
	case OpInvite:
		notice := &InviteNotice{}
		if err := json.Unmarshal(payload, notice); err != nil {
			r.logger.Warn("HandleShellMessage: bad invite payload: %v", err)
			return
		}
		inviteID, err := uuid.Parse(notice.InviteID)
		if err != nil {
			inviteID = uuid.New()
		}
		r.invites.Publish(Invite{
			ID:        inviteID,
			SessionID: notice.SessionID,
			Kind:      notice.Kind,
			HostName:  notice.HostName,
			CreatedAt: time.Unix(notice.CreatedAt, 0),
		})
	case OpSessionEnded:
		notice, err := decodeEnded(payload)
		if err != nil {
			r.logger.Warn("HandleShellMessage: bad terminal payload: %v", err)
			return
		}
		r.invites.Remove(notice.SessionID)
	default:
		r.logger.Warn("HandleShellMessage: unknown op code %d", opCode)
	}
}

// HandlePeerMessage is the receive path for point-to-point payloads.
func (r *Registry) HandlePeerMessage(viewerID string, opCode int64, payload []byte) {
	switch opCode {
	case OpPrivateState:
		view, err := decodePrivate(payload)
		if err != nil {
			r.logger.Warn("HandlePeerMessage: bad private payload: %v", err)
			return
		}
		r.mu.Lock()
		proj := r.trackLocked(view.SessionID, viewerID)
		r.mu.Unlock()
		proj.ApplyPrivate(view)
	default:
		r.logger.Warn("HandlePeerMessage: unknown op code %d", opCode)
	}
}

// lookup fetches an authority under the read lock, releasing it before any
// command runs so session locks never nest inside the registry lock.
func (r *Registry) lookup(sessionID string) *HostAuthority {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.authorities[sessionID]
}

func (r *Registry) trackLocked(sessionID, viewerID string) *Projection {
	viewers, ok := r.projections[sessionID]
	if !ok {
		viewers = make(map[string]*Projection)
		r.projections[sessionID] = viewers
	}
	proj, ok := viewers[viewerID]
	if !ok {
		proj = NewProjection(viewerID)
		viewers[viewerID] = proj
	}
	return proj
}

// deliverPublic fans a public view into every tracked projection for the
// session. Implements viewSink for locally hosted authorities and serves
// the transport receive path for remote ones.
func (r *Registry) deliverPublic(view *domain.PublicView) {
	r.mu.RLock()
	viewers := make([]*Projection, 0, len(r.projections[view.SessionID]))
	for _, proj := range r.projections[view.SessionID] {
		viewers = append(viewers, proj)
	}
	r.mu.RUnlock()
	for _, proj := range viewers {
		proj.ApplyPublic(view)
	}
}

func (r *Registry) deliverPrivate(playerID string, view *domain.PrivateView) {
	r.mu.RLock()
	proj := r.projections[view.SessionID][playerID]
	r.mu.RUnlock()
	if proj != nil {
		proj.ApplyPrivate(view)
	}
}

func (r *Registry) sessionEnded(sessionID string) {
	r.invites.Remove(sessionID)
}
