package session

import (
	"testing"

	"github.com/google/uuid"
)

func TestInviteDirectoryPublishIsIdempotentPerSession(t *testing.T) {
	d := NewInviteDirectory()
	first := Invite{ID: uuid.New(), SessionID: "s1", HostName: "Host"}
	d.Publish(first)
	d.Publish(Invite{ID: uuid.New(), SessionID: "s1", HostName: "Imposter"})

	list := d.List(nil, nil)
	if len(list) != 1 {
		t.Fatalf("expected one invite, got %d", len(list))
	}
	if list[0].ID != first.ID {
		t.Error("second publish must not replace the original invite")
	}
}

func TestInviteDirectoryListFilters(t *testing.T) {
	d := NewInviteDirectory()
	d.Publish(Invite{ID: uuid.New(), SessionID: "alive"})
	d.Publish(Invite{ID: uuid.New(), SessionID: "dead"})
	d.Publish(Invite{ID: uuid.New(), SessionID: "joined"})

	alive := func(sid string) bool { return sid != "dead" }
	joined := func(sid string) bool { return sid == "joined" }

	list := d.List(alive, joined)
	if len(list) != 1 || list[0].SessionID != "alive" {
		t.Fatalf("expected only the alive unjoined invite, got %+v", list)
	}

	// Dead sessions are pruned for everyone; joined ones stay for others.
	list = d.List(nil, nil)
	ids := map[string]bool{}
	for _, inv := range list {
		ids[inv.SessionID] = true
	}
	if ids["dead"] {
		t.Error("dead invite must be pruned after enumeration")
	}
	if !ids["joined"] {
		t.Error("joined filter is per viewer and must not prune")
	}
}

func TestInviteDirectoryRemove(t *testing.T) {
	d := NewInviteDirectory()
	d.Publish(Invite{ID: uuid.New(), SessionID: "s1"})
	d.Remove("s1")
	if list := d.List(nil, nil); len(list) != 0 {
		t.Fatalf("expected no invites after remove, got %d", len(list))
	}

	// Republishing after removal works; a new session cycle gets a new invite.
	d.Publish(Invite{ID: uuid.New(), SessionID: "s1"})
	if list := d.List(nil, nil); len(list) != 1 {
		t.Fatalf("expected the republished invite, got %d", len(list))
	}
}
