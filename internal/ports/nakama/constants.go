package nakama

const (
	// RpcHostSession is the RPC id clients call to host a blackjack session
	// inside one of their shells. Returns the match id and a host token.
	RpcHostSession = "host_session"

	// RpcListInvites is the RPC id clients call to enumerate joinable
	// blackjack sessions advertised to them.
	RpcListInvites = "list_invites"

	// MatchNameBlackjack is the authoritative match handler name registered
	// with the Nakama runtime.
	MatchNameBlackjack = "blackjack_match"

	// NotificationCodeInvite tags session-invite notifications.
	NotificationCodeInvite = 110
)

// Client -> server op codes. Server -> client op codes live in the session
// package next to the payloads they carry.
const (
	OpStartBetting int64 = 1
	OpConfirmBet   int64 = 2
	OpDealAndPlay  int64 = 3
	OpPlayerAction int64 = 4
	OpNextRound    int64 = 5
)
