package session

import (
	"encoding/json"

	"blackjack/internal/domain"
)

// Server -> client op codes. Clients discard any payload whose version is not
// greater than the one they already cached, so duplicate and reordered
// delivery is self-healing.
const (
	OpPublicState  int64 = 101
	OpPrivateState int64 = 102
	OpInvite       int64 = 103
	OpSessionEnded int64 = 104
)

// EndedNotice is the terminal wire payload for a session.
type EndedNotice struct {
	SessionID string `json:"session_id"`
}

// InviteNotice advertises a hosted session to shell members.
type InviteNotice struct {
	InviteID  string `json:"invite_id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	HostName  string `json:"host_name"`
	CreatedAt int64  `json:"created_at"`
}

func encodeEnded(sessionID string) ([]byte, error) {
	return json.Marshal(EndedNotice{SessionID: sessionID})
}

func decodeEnded(b []byte) (*EndedNotice, error) {
	n := &EndedNotice{}
	if err := json.Unmarshal(b, n); err != nil {
		return nil, err
	}
	return n, nil
}

func encodePublic(v *domain.PublicView) ([]byte, error) {
	return json.Marshal(v)
}

func decodePublic(b []byte) (*domain.PublicView, error) {
	v := &domain.PublicView{}
	if err := json.Unmarshal(b, v); err != nil {
		return nil, err
	}
	return v, nil
}

func encodePrivate(v *domain.PrivateView) ([]byte, error) {
	return json.Marshal(v)
}

func decodePrivate(b []byte) (*domain.PrivateView, error) {
	v := &domain.PrivateView{}
	if err := json.Unmarshal(b, v); err != nil {
		return nil, err
	}
	return v, nil
}
