package app

// EventKind identifies emitted session events for transport dispatch.
type EventKind string

const (
	// EventPublicState carries a recomputed PublicView for the whole shell.
	EventPublicState EventKind = "public_state"
	// EventPrivateState carries one viewer's PrivateView, sent point-to-point.
	EventPrivateState EventKind = "private_state"
	// EventRoundSettled carries net balance changes for a resolved round.
	EventRoundSettled EventKind = "round_settled"
	// EventSessionEnded marks the terminal broadcast of a session.
	EventSessionEnded EventKind = "session_ended"
)

// Event is a session event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // player IDs; empty means broadcast to the shell
}

// RoundSettledPayload lists net wallet deltas per player for a resolved round:
// win +bet, push 0, lose -bet. Sitting-out seats are absent.
type RoundSettledPayload struct {
	SessionID      string
	BalanceChanges map[string]int64
}

// SessionEndedPayload marks a session's terminal broadcast.
type SessionEndedPayload struct {
	SessionID string
}
