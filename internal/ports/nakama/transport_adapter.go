package nakama

import (
	"context"
	"sync"

	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// dispatcherTransport implements ports.Transport over the Nakama match
// dispatcher. The dispatcher is only handed to match callbacks, so it is
// rebound on every callback before any send happens.
type dispatcherTransport struct {
	mu         sync.Mutex
	dispatcher runtime.MatchDispatcher
	presences  map[string]runtime.Presence
}

func newDispatcherTransport() *dispatcherTransport {
	return &dispatcherTransport{presences: make(map[string]runtime.Presence)}
}

// Bind attaches the dispatcher for the current match callback.
func (t *dispatcherTransport) Bind(dispatcher runtime.MatchDispatcher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatcher = dispatcher
}

// Track remembers a presence for targeted delivery.
func (t *dispatcherTransport) Track(p runtime.Presence) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.presences[p.GetUserId()] = p
}

// Forget drops a departed presence.
func (t *dispatcherTransport) Forget(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.presences, userID)
}

// SendToPeer delivers a payload to one connected peer. Peers without a
// tracked presence (bots, disconnected players) are skipped; the next full
// broadcast heals whatever they missed.
func (t *dispatcherTransport) SendToPeer(ctx context.Context, peerID string, opCode int64, payload []byte) error {
	t.mu.Lock()
	dispatcher := t.dispatcher
	presence, ok := t.presences[peerID]
	t.mu.Unlock()
	if dispatcher == nil || !ok {
		return nil
	}
	return dispatcher.BroadcastMessage(opCode, payload, []runtime.Presence{presence}, nil, true)
}

// SendToShell delivers a payload to every presence in the match.
func (t *dispatcherTransport) SendToShell(ctx context.Context, shellID string, opCode int64, payload []byte) error {
	t.mu.Lock()
	dispatcher := t.dispatcher
	t.mu.Unlock()
	if dispatcher == nil {
		return nil
	}
	return dispatcher.BroadcastMessage(opCode, payload, nil, nil, true)
}

var _ ports.Transport = (*dispatcherTransport)(nil)
