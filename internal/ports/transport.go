package ports

import "context"

// Transport moves encoded session payloads between shell peers. Delivery is
// assumed at-least-once and reorder tolerant; correctness comes from
// full-state rebroadcast plus version comparison on the receiving side, not
// from retry or ack logic here.
type Transport interface {
	// SendToPeer delivers a payload to a single peer, point-to-point.
	SendToPeer(ctx context.Context, peerID string, opCode int64, payload []byte) error

	// SendToShell delivers a payload to every member of a shell group.
	SendToShell(ctx context.Context, shellID string, opCode int64, payload []byte) error
}
