package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Invite advertises one hosted session to shell members who have not joined.
// There is one invite per session, never one per recipient.
type Invite struct {
	ID        uuid.UUID
	SessionID string
	Kind      string
	HostName  string
	CreatedAt time.Time
}

// InviteDirectory tracks pending invites per session. Publishing an invite
// for a session that already has one is idempotent, and invites referencing
// ended sessions are pruned lazily whenever the list is enumerated.
type InviteDirectory struct {
	mu        sync.Mutex
	bySession map[string]Invite
}

// NewInviteDirectory creates an empty directory.
func NewInviteDirectory() *InviteDirectory {
	return &InviteDirectory{bySession: make(map[string]Invite)}
}

// Publish records the invite unless the session already has one.
func (d *InviteDirectory) Publish(inv Invite) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.bySession[inv.SessionID]; exists {
		return
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	d.bySession[inv.SessionID] = inv
}

// Remove drops the invite for a session, if any.
func (d *InviteDirectory) Remove(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bySession, sessionID)
}

// List enumerates pending invites. Sessions reported dead by alive are
// pruned in place; sessions the viewer already joined are filtered from the
// result but kept for other viewers. Declining is purely local: a viewer who
// ignores an invite sends nothing back to the host.
func (d *InviteDirectory) List(alive, joined func(sessionID string) bool) []Invite {
	d.mu.Lock()
	all := make([]Invite, 0, len(d.bySession))
	for _, inv := range d.bySession {
		all = append(all, inv)
	}
	d.mu.Unlock()

	// Callbacks run outside the directory lock; they reach into session
	// state and must not nest inside it.
	out := make([]Invite, 0, len(all))
	var dead []string
	for _, inv := range all {
		if alive != nil && !alive(inv.SessionID) {
			dead = append(dead, inv.SessionID)
			continue
		}
		if joined != nil && joined(inv.SessionID) {
			continue
		}
		out = append(out, inv)
	}

	if len(dead) > 0 {
		d.mu.Lock()
		for _, sid := range dead {
			delete(d.bySession, sid)
		}
		d.mu.Unlock()
	}
	return out
}
