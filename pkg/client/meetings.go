package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type CreateMeetingRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	CallID      string  `json:"call_id"`
}

type UpdateMeetingRequest struct {
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	Status           *string `json:"status,omitempty"`
	Duration         *int    `json:"duration,omitempty"`
	ParticipantCount *int    `json:"participant_count,omitempty"`
}

func (v *Client) CreateMeeting(ctx context.Context, req CreateMeetingRequest) (*Meeting, error) {
	var meeting Meeting
	if err := v.request(ctx, http.MethodPost, "/meetings", req, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (v *Client) Meetings(ctx context.Context) ([]Meeting, error) {
	var meetings []Meeting
	if err := v.request(ctx, http.MethodGet, "/meetings", nil, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// MeetingHistory pages through finished meetings; callers re-invoke with a
// larger limit to see further back.
func (v *Client) MeetingHistory(ctx context.Context, limit int) ([]Meeting, error) {
	var meetings []Meeting
	path := fmt.Sprintf("/meetings/history?limit=%d", limit)
	if err := v.request(ctx, http.MethodGet, path, nil, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (v *Client) Meeting(ctx context.Context, id string) (*Meeting, error) {
	var meeting Meeting
	if err := v.request(ctx, http.MethodGet, "/meetings/"+url.PathEscape(id), nil, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (v *Client) UpdateMeeting(ctx context.Context, id string, req UpdateMeetingRequest) (*Meeting, error) {
	var meeting Meeting
	if err := v.request(ctx, http.MethodPatch, "/meetings/"+url.PathEscape(id), req, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (v *Client) DeleteMeeting(ctx context.Context, id string) error {
	return v.request(ctx, http.MethodDelete, "/meetings/"+url.PathEscape(id), nil, nil)
}

// MeetingByCall resolves a call id to its meeting record; both the returned
// meeting and the error are nil when no record exists yet.
func (v *Client) MeetingByCall(ctx context.Context, callId string) (*Meeting, error) {
	var meeting Meeting
	err := v.request(ctx, http.MethodGet, "/meetings/by-call/"+url.PathEscape(callId), nil, &meeting)
	if err != nil {
		return nil, err
	}
	if meeting.ID == 0 && len(meeting.Uuid) == 0 {
		return nil, nil
	}
	return &meeting, nil
}

func (v *Client) JoinByCall(ctx context.Context, callId string) (*Meeting, error) {
	var meeting Meeting
	if err := v.request(ctx, http.MethodPost, "/meetings/by-call/"+url.PathEscape(callId)+"/join", nil, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (v *Client) LeaveByCall(ctx context.Context, callId string) (*Meeting, error) {
	var meeting Meeting
	if err := v.request(ctx, http.MethodPost, "/meetings/by-call/"+url.PathEscape(callId)+"/leave", nil, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (v *Client) StartByCall(ctx context.Context, callId string) (*Meeting, error) {
	var meeting Meeting
	if err := v.request(ctx, http.MethodPost, "/meetings/by-call/"+url.PathEscape(callId)+"/start", nil, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (v *Client) EndByCall(ctx context.Context, callId string) (*Meeting, error) {
	var meeting Meeting
	if err := v.request(ctx, http.MethodPost, "/meetings/by-call/"+url.PathEscape(callId)+"/end", nil, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}
