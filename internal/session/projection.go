package session

import (
	"sync/atomic"

	"blackjack/internal/domain"
)

// Projection caches the latest views received for one session by one viewer.
// Reads never block: before the first broadcast arrives the snapshot simply
// has no state yet. Updates are last-writer-wins by version number with an
// atomic pointer replace per channel, so no further locking is needed.
type Projection struct {
	viewerID string
	public   atomic.Pointer[domain.PublicView]
	private  atomic.Pointer[domain.PrivateView]
}

// Snapshot is a read-only pair of the most recent views. Either half may be
// nil before its first delivery.
type Snapshot struct {
	ViewerID string
	Version  uint64
	Public   *domain.PublicView
	Private  *domain.PrivateView
}

// NewProjection creates an empty projection for the given viewer.
func NewProjection(viewerID string) *Projection {
	return &Projection{viewerID: viewerID}
}

// ApplyPublic installs a public view unless a same-or-newer version is
// already cached. Returns whether the view was accepted.
func (p *Projection) ApplyPublic(v *domain.PublicView) bool {
	if v == nil {
		return false
	}
	for {
		cur := p.public.Load()
		if cur != nil && v.Version <= cur.Version {
			return false
		}
		if p.public.CompareAndSwap(cur, v) {
			return true
		}
	}
}

// ApplyPrivate installs a private view under the same version rule.
func (p *Projection) ApplyPrivate(v *domain.PrivateView) bool {
	if v == nil || v.PlayerID != p.viewerID {
		return false
	}
	for {
		cur := p.private.Load()
		if cur != nil && v.Version <= cur.Version {
			return false
		}
		if p.private.CompareAndSwap(cur, v) {
			return true
		}
	}
}

// Snapshot returns the latest cached views without blocking.
func (p *Projection) Snapshot() Snapshot {
	snap := Snapshot{
		ViewerID: p.viewerID,
		Public:   p.public.Load(),
		Private:  p.private.Load(),
	}
	if snap.Public != nil {
		snap.Version = snap.Public.Version
	}
	if snap.Private != nil && snap.Private.Version > snap.Version {
		snap.Version = snap.Private.Version
	}
	return snap
}
