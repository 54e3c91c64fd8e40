package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"blackjack/internal/config"
	"blackjack/internal/session"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// RegisterRPCs wires all RPC handlers into the Nakama runtime.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcHostSession, rpcHostSession); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcListInvites, rpcListInvites)
}

// HostSessionRequest is the payload for the host_session RPC.
type HostSessionRequest struct {
	ShellID string `json:"shell_id"`
}

// HostSessionResponse returns the created match and the token the host
// attaches to host-only commands.
type HostSessionResponse struct {
	MatchID   string `json:"match_id"`
	HostToken string `json:"host_token"`
}

// rpcHostSession creates an authoritative match for a blackjack session
// hosted by the caller inside one of their shells, then notifies the shell
// members with an invite.
func rpcHostSession(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("rpc requires an authenticated user", 16)
	}

	var req HostSessionRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid request payload", 3)
		}
	}
	if req.ShellID == "" {
		return "", runtime.NewError("shell_id is required", 3)
	}

	hostName, _ := ctx.Value(runtime.RUNTIME_CTX_USERNAME).(string)

	params := map[string]interface{}{
		"shell_id":     req.ShellID,
		"host_user_id": userID,
		"host_name":    hostName,
	}
	matchID, err := nk.MatchCreate(ctx, MatchNameBlackjack, params)
	if err != nil {
		logger.Error("RpcHostSession [User:%s]: Failed to create match: %v", userID, err)
		return "", runtime.NewError("failed to create session", 13)
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, cfgErr := config.FromRuntimeEnv(env)
	if cfgErr != nil {
		logger.Warn("RpcHostSession: config parse failed, using defaults: %v", cfgErr)
	}
	secret := cfg.HostTokenSecret
	if secret == "" {
		logger.Warn("RpcHostSession: host token secret not set, using development fallback")
		secret = "insecure-dev-secret"
	}

	token, err := mintHostToken(secret, matchID, userID, time.Duration(cfg.HostTokenTTLSeconds)*time.Second)
	if err != nil {
		logger.Error("RpcHostSession [User:%s]: Failed to mint host token: %v", userID, err)
		return "", runtime.NewError("failed to mint host token", 13)
	}

	notifyShellMembers(ctx, logger, nk, req.ShellID, matchID, userID, hostName)

	resp := HostSessionResponse{MatchID: matchID, HostToken: token}
	b, _ := json.Marshal(resp)

	logger.Info("RpcHostSession [User:%s]: Created session %s in shell %s", userID, matchID, req.ShellID)
	return string(b), nil
}

// notifyShellMembers sends an invite notification to every shell member
// except the host. Notification failures never fail session creation.
func notifyShellMembers(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, shellID, matchID, hostID, hostName string) {
	members, _, err := nk.GroupUsersList(ctx, shellID, 100, nil, "")
	if err != nil {
		logger.Warn("RpcHostSession: Failed to list shell %s members: %v", shellID, err)
		return
	}

	invite := session.InviteNotice{
		InviteID:  uuid.NewString(),
		SessionID: matchID,
		Kind:      "blackjack",
		HostName:  hostName,
		CreatedAt: time.Now().Unix(),
	}
	content := map[string]interface{}{
		"invite_id":  invite.InviteID,
		"session_id": invite.SessionID,
		"kind":       invite.Kind,
		"host_name":  invite.HostName,
		"created_at": invite.CreatedAt,
	}

	for _, member := range members {
		if member.User == nil || member.User.Id == hostID {
			continue
		}
		if err := nk.NotificationSend(ctx, member.User.Id, "Blackjack invite", content, NotificationCodeInvite, hostID, true); err != nil {
			logger.Warn("RpcHostSession: Failed to notify user %s: %v", member.User.Id, err)
		}
	}
}

// InviteSummary is one joinable session in the list_invites response.
type InviteSummary struct {
	MatchID   string `json:"match_id"`
	HostName  string `json:"host_name"`
	OpenSeats int    `json:"open_seats"`
	Stage     string `json:"stage"`
}

// ListInvitesResponse is the payload returned by the list_invites RPC.
type ListInvitesResponse struct {
	Invites []InviteSummary `json:"invites"`
}

// rpcListInvites lists open blackjack sessions still accepting players.
// Sessions past the betting stage drop their open count to zero and fall
// out of the query.
func rpcListInvites(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	query := "+label.game:blackjack +label.open:>=1"
	limit := 20
	authoritative := true
	minSize := 0
	maxSize := 8

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("RpcListInvites [User:%s]: Failed to list matches: %v", userID, err)
		return "", runtime.NewError("failed to list sessions", 13)
	}

	resp := ListInvitesResponse{Invites: make([]InviteSummary, 0, len(matches))}
	for _, m := range matches {
		var label matchLabel
		if err := json.Unmarshal([]byte(m.GetLabel().GetValue()), &label); err != nil {
			continue
		}
		resp.Invites = append(resp.Invites, InviteSummary{
			MatchID:   m.MatchId,
			HostName:  label.HostName,
			OpenSeats: label.Open,
			Stage:     label.Stage,
		})
	}

	b, _ := json.Marshal(resp)
	return string(b), nil
}
