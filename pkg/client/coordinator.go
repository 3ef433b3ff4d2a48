package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// CallTicket is everything needed to enter a live call: the provider
// credential plus the bookkeeping record when the registry produced one.
type CallTicket struct {
	Meeting  *Meeting `json:"meeting"`
	Token    string   `json:"token"`
	Endpoint string   `json:"endpoint"`
}

// StartOrJoinCall runs the join sequence for callId: create-or-get the
// meeting record, then obtain a provider credential bound to the current
// user. Credential failure aborts; a registry failure is logged and the call
// proceeds without bookkeeping, per the lifecycle contract.
func (v *Client) StartOrJoinCall(ctx context.Context, callId string) (*CallTicket, error) {
	session := v.Session()
	if session == nil {
		return nil, ErrUnauthenticated
	}

	var ticket CallTicket
	err := v.request(ctx, http.MethodPost, "/meetings/by-call/"+url.PathEscape(callId), nil, &ticket)
	if err == nil && len(ticket.Token) > 0 {
		return &ticket, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("call_id", callId).Msg("Meeting bookkeeping unavailable, joining without a record...")
	}

	// The combined endpoint failed; mint the credential directly so the
	// live call is not gated on bookkeeping.
	token, err := v.GenerateToken(ctx, session.User.Uuid)
	if err != nil {
		return nil, err
	}
	ticket.Token = token
	return &ticket, nil
}

// ConfirmJoined reports the provider's participant-joined observation back
// to the registry.
func (v *Client) ConfirmJoined(ctx context.Context, callId string) (*Meeting, error) {
	return v.JoinByCall(ctx, callId)
}

// LeaveCall reports a leave observation. The backend decides whether this
// completes the meeting (host leaving, or last participant out).
func (v *Client) LeaveCall(ctx context.Context, callId string) (*Meeting, error) {
	return v.LeaveByCall(ctx, callId)
}

// EndCall explicitly completes the meeting; only the host or the last
// remaining participant may do so.
func (v *Client) EndCall(ctx context.Context, callId string) (*Meeting, error) {
	return v.EndByCall(ctx, callId)
}
