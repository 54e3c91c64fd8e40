package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// loopbackTransport delivers sends synchronously into a remote registry,
// standing in for the real peer-to-peer channel. Peers listed in remotePeers
// receive their point-to-point payloads there.
type loopbackTransport struct {
	mu          sync.Mutex
	remote      *Registry
	remotePeers map[string]bool
	shellSends  int
	peerSends   int
}

func (t *loopbackTransport) SendToShell(ctx context.Context, shellID string, opCode int64, payload []byte) error {
	t.mu.Lock()
	t.shellSends++
	remote := t.remote
	t.mu.Unlock()
	if remote != nil {
		remote.HandleShellMessage(opCode, payload)
	}
	return nil
}

func (t *loopbackTransport) SendToPeer(ctx context.Context, peerID string, opCode int64, payload []byte) error {
	t.mu.Lock()
	t.peerSends++
	remote := t.remote
	isRemote := t.remotePeers[peerID]
	t.mu.Unlock()
	if remote != nil && isRemote {
		remote.HandlePeerMessage(peerID, opCode, payload)
	}
	return nil
}

type mockEconomy struct {
	mu      sync.Mutex
	updates []ports.WalletUpdate
}

func (m *mockEconomy) GetBalance(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (m *mockEconomy) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, updates...)
	return nil
}

func (m *mockEconomy) all() []ports.WalletUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.WalletUpdate(nil), m.updates...)
}

func TestHostValidation(t *testing.T) {
	reg := NewRegistry(&loopbackTransport{}, nil, noopLogger{}, 4)
	ctx := context.Background()

	if sid := reg.Host(ctx, PeerContext{PlayerID: "p1"}); sid != "" {
		t.Error("hosting without a shell must fail")
	}
	if sid := reg.Host(ctx, PeerContext{ShellID: "shell-1"}); sid != "" {
		t.Error("hosting without a player must fail")
	}

	sid := reg.HostWithID(ctx, "fixed-id", PeerContext{ShellID: "shell-1", PlayerID: "p1", Username: "Host"})
	if sid != "fixed-id" {
		t.Fatalf("HostWithID returned %q", sid)
	}
	if dup := reg.HostWithID(ctx, "fixed-id", PeerContext{ShellID: "shell-1", PlayerID: "p2"}); dup != "" {
		t.Error("hosting an existing id must fail")
	}
}

// TestFullRoundFlow runs a complete session through the registry with a
// remote observer receiving views over the loopback transport: host, join,
// bet, deal, play to completion, settle, next round, host departure.
func TestFullRoundFlow(t *testing.T) {
	ctx := context.Background()
	remote := NewRegistry(&loopbackTransport{}, nil, noopLogger{}, 4)
	transport := &loopbackTransport{remote: remote, remotePeers: map[string]bool{"p2": true}}
	economy := &mockEconomy{}
	reg := NewRegistry(transport, economy, noopLogger{}, 4)

	sid := reg.Host(ctx, PeerContext{ShellID: "shell-1", PlayerID: "p1", Username: "Host"})
	if sid == "" {
		t.Fatal("hosting failed")
	}
	remote.Track(sid, "p2")
	reg.Join(ctx, sid, PeerContext{ShellID: "shell-1", PlayerID: "p2", Username: "Guest"})

	// Invites hide sessions the viewer already sits in.
	if invites := reg.Invites("p2"); len(invites) != 0 {
		t.Errorf("seated player still sees the invite: %+v", invites)
	}
	if invites := reg.Invites("p9"); len(invites) != 1 {
		t.Errorf("outsider sees %d invites, want 1", len(invites))
	}

	// Non-host lifecycle commands are no-ops.
	reg.StartBetting(ctx, sid, "p2")
	if snap, _ := reg.TryGetHosted(sid); snap.Stage != domain.StageLobby {
		t.Fatalf("non-host advanced the stage to %q", snap.Stage)
	}

	reg.StartBetting(ctx, sid, "p1")
	reg.ConfirmBet(ctx, sid, "p1", 1000)
	reg.ConfirmBet(ctx, sid, "p2", 500)
	reg.DealAndPlay(ctx, sid, "p1")

	snap, ok := reg.TryGetHosted(sid)
	if !ok || snap.Stage != domain.StagePlaying {
		t.Fatalf("stage = %q, want playing", snap.Stage)
	}

	// The remote observer received p2's private hand but nobody else's, and
	// the public view leaks no cards.
	client, ok := remote.TryGetClient(sid, "p2")
	if !ok || client.Private == nil {
		t.Fatal("remote peer did not receive its private view")
	}
	if len(client.Private.Hand) != 2 {
		t.Errorf("p2 hand = %v, want two cards", client.Private.Hand)
	}
	if client.Private.DealerHole != nil {
		t.Error("non-host must not receive the dealer hole card")
	}
	if client.Public == nil {
		t.Fatal("remote peer did not receive the public view")
	}
	if got := len(client.Public.Dealer.UpCards); got != 1 {
		t.Errorf("public dealer up-cards = %d, want 1", got)
	}

	// The host's own projection carries the hole card.
	hostClient, ok := reg.TryGetClient(sid, "p1")
	if !ok || hostClient.Private == nil || hostClient.Private.DealerHole == nil {
		t.Error("host projection must include the dealer hole card")
	}

	// Stand every turn out; the round must resolve.
	for i := 0; i < 10; i++ {
		snap, _ = reg.TryGetHosted(sid)
		if snap.Stage != domain.StagePlaying {
			break
		}
		reg.PlayerAction(ctx, sid, snap.TurnPlayerID, domain.ActionStand)
	}
	snap, _ = reg.TryGetHosted(sid)
	if snap.Stage != domain.StageResults {
		t.Fatalf("stage = %q, want results", snap.Stage)
	}

	// Settlement matches the seats: every nonzero payout-minus-bet reached
	// the economy exactly once.
	want := map[string]int64{}
	for _, seat := range snap.Seats {
		if delta := seat.Payout - seat.Bet; delta != 0 {
			want[seat.PlayerID] = delta
		}
	}
	got := map[string]int64{}
	for _, u := range economy.all() {
		got[u.UserID] += u.Amount
	}
	if len(got) != len(want) {
		t.Fatalf("economy updates = %v, want %v", got, want)
	}
	for pid, amount := range want {
		if got[pid] != amount {
			t.Errorf("settlement for %s = %d, want %d", pid, got[pid], amount)
		}
	}

	// Next round resets and replays cleanly.
	reg.NextRound(ctx, sid, "p1")
	if snap, _ = reg.TryGetHosted(sid); snap.Stage != domain.StageBetting {
		t.Fatalf("stage = %q, want betting for the next round", snap.Stage)
	}

	// Host departure tears the session down everywhere.
	reg.Leave(ctx, sid, "p1")
	if _, ok := reg.TryGetHosted(sid); ok {
		t.Error("ended session must leave the registry")
	}
	if invites := reg.Invites("p9"); len(invites) != 0 {
		t.Errorf("ended session still advertised: %+v", invites)
	}
}

func TestDuplicateActionsResolveToOneEffect(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&loopbackTransport{}, nil, noopLogger{}, 4)
	sid := reg.Host(ctx, PeerContext{ShellID: "shell-1", PlayerID: "p1", Username: "Host"})
	reg.Join(ctx, sid, PeerContext{ShellID: "shell-1", PlayerID: "p2", Username: "Guest"})
	reg.StartBetting(ctx, sid, "p1")
	reg.ConfirmBet(ctx, sid, "p1", 100)
	reg.ConfirmBet(ctx, sid, "p2", 100)
	reg.DealAndPlay(ctx, sid, "p1")

	snap, _ := reg.TryGetHosted(sid)
	first := snap.TurnPlayerID
	before := snap.Version

	// A burst of duplicate Stands for the same turn: exactly one applies,
	// the rest hit the turn-discipline guard.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.PlayerAction(ctx, sid, first, domain.ActionStand)
		}()
	}
	wg.Wait()

	snap, _ = reg.TryGetHosted(sid)
	if snap.Version != before+1 {
		t.Errorf("version advanced %d times, want exactly 1", snap.Version-before)
	}
	if snap.TurnPlayerID == first {
		t.Error("turn must have moved off the standing seat")
	}
	for _, seat := range snap.Seats {
		if seat.PlayerID == first && !seat.Done {
			t.Error("standing seat must be done")
		}
	}
}

func TestConcurrentHitsOnBustingSeatDealOneCard(t *testing.T) {
	ctx := context.Background()
	transport := &loopbackTransport{}
	reg := NewRegistry(transport, nil, noopLogger{}, 4)
	sid := reg.Host(ctx, PeerContext{ShellID: "shell-1", PlayerID: "p1", Username: "Host"})
	reg.Join(ctx, sid, PeerContext{ShellID: "shell-1", PlayerID: "p2", Username: "Guest"})
	reg.StartBetting(ctx, sid, "p1")
	reg.ConfirmBet(ctx, sid, "p1", 100)
	reg.ConfirmBet(ctx, sid, "p2", 100)
	reg.DealAndPlay(ctx, sid, "p1")

	// Hit until the turn holder busts or the round resolves. The interesting
	// window is the burst arriving after the busting card: the seat is done,
	// so every extra Hit must bounce off the turn guard.
	snap, _ := reg.TryGetHosted(sid)
	first := snap.TurnPlayerID
	for i := 0; i < 21; i++ {
		snap, _ = reg.TryGetHosted(sid)
		if snap.Stage != domain.StagePlaying || snap.TurnPlayerID != first {
			break
		}
		reg.PlayerAction(ctx, sid, first, domain.ActionHit)
	}

	snap, _ = reg.TryGetHosted(sid)
	before := snap.Version
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.PlayerAction(ctx, sid, first, domain.ActionHit)
		}()
	}
	wg.Wait()

	after, _ := reg.TryGetHosted(sid)
	if after.Version != before {
		t.Errorf("hits against a finished seat advanced the version by %d", after.Version-before)
	}
	for _, seat := range after.Seats {
		if seat.PlayerID == first && !seat.Done {
			t.Fatal("setup: first seat should be done after busting or resolution")
		}
	}
}

func TestRemoteInviteLifecycle(t *testing.T) {
	remote := NewRegistry(&loopbackTransport{}, nil, noopLogger{}, 4)

	notice, _ := json.Marshal(InviteNotice{
		InviteID:  "2f0c2a52-5a97-4a7a-9794-6b29a2a0fa11",
		SessionID: "remote-session",
		Kind:      domain.KindBlackjack,
		HostName:  "Host",
		CreatedAt: 1700000000,
	})
	remote.HandleShellMessage(OpInvite, notice)

	invites := remote.Invites("p2")
	if len(invites) != 1 || invites[0].SessionID != "remote-session" {
		t.Fatalf("invite not recorded: %+v", invites)
	}

	// Duplicate delivery stays idempotent.
	remote.HandleShellMessage(OpInvite, notice)
	if got := len(remote.Invites("p2")); got != 1 {
		t.Fatalf("duplicate invite produced %d entries", got)
	}

	// The terminal notice clears it.
	ended, _ := json.Marshal(EndedNotice{SessionID: "remote-session"})
	remote.HandleShellMessage(OpSessionEnded, ended)
	if got := len(remote.Invites("p2")); got != 0 {
		t.Fatalf("ended session still advertised, %d invites", got)
	}
}

func TestStaleBroadcastsAreDropped(t *testing.T) {
	remote := NewRegistry(&loopbackTransport{}, nil, noopLogger{}, 4)
	remote.Track("s1", "p2")

	fresh, _ := json.Marshal(&domain.PublicView{SessionID: "s1", Version: 5, Stage: domain.StagePlaying})
	stale, _ := json.Marshal(&domain.PublicView{SessionID: "s1", Version: 3, Stage: domain.StageLobby})
	remote.HandleShellMessage(OpPublicState, fresh)
	remote.HandleShellMessage(OpPublicState, stale)

	snap, ok := remote.TryGetClient("s1", "p2")
	if !ok || snap.Public == nil {
		t.Fatal("projection missing after delivery")
	}
	if snap.Public.Version != 5 || snap.Public.Stage != domain.StagePlaying {
		t.Errorf("stale broadcast overwrote the cache: %+v", snap.Public)
	}
}
