package services

import (
	"fmt"

	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// CallTicket is what a client needs to enter the live call: the bookkeeping
// record (when available) and a provider credential bound to the user.
type CallTicket struct {
	Meeting  *models.Meeting `json:"meeting"`
	Token    string          `json:"token"`
	Endpoint string          `json:"endpoint"`
}

// StartOrJoinCall prepares a user's entry into the call behind callId.
// A credential failure blocks the join entirely; a registry failure does not
// block the live call, it is logged and audited so the gap is discoverable.
func StartOrJoinCall(callId string, user models.Account, seed models.Meeting) (CallTicket, error) {
	var ticket CallTicket

	meeting, err := CreateOrGetMeeting(callId, user, seed)
	if err != nil {
		log.Error().Err(err).
			Str("call_id", callId).
			Uint("user_id", user.ID).
			Msg("Meeting bookkeeping unavailable, letting the call proceed...")
		RecordMeetingEvent(models.EventMeetingMiss, callId, nil, &user, map[string]any{
			"reason": err.Error(),
		})
	} else {
		ticket.Meeting = &meeting
	}

	tk, err := IssueCredential(user.Uuid)
	if err != nil {
		return ticket, err
	}

	if err := EnsureCallRoom(callId); err != nil {
		log.Warn().Err(err).Str("call_id", callId).Msg("Unable to ensure room at provider side...")
	}

	ticket.Token = tk
	ticket.Endpoint = viper.GetString("calling.endpoint")
	return ticket, nil
}

// JoinCall records the provider's participant-joined observation.
func JoinCall(callId string, user models.Account) (models.Meeting, error) {
	meeting, err := RecordJoin(callId, user)
	if err != nil {
		return meeting, err
	}

	RecordMeetingEvent(models.EventMeetingJoin, callId, &meeting, &user, map[string]any{
		"participant_count": meeting.ParticipantCount,
	})
	return meeting, nil
}

// LeaveCall records a leave observation. When the leaver is the host or the
// last counted participant, the meeting record is completed; otherwise the
// record stays ongoing.
func LeaveCall(callId string, user models.Account) (models.Meeting, error) {
	meeting, remaining, err := RecordLeave(callId, user)
	if err != nil {
		return meeting, err
	}

	RecordMeetingEvent(models.EventMeetingLeave, callId, &meeting, &user, map[string]any{
		"remaining": remaining,
	})

	if meeting.HostID == user.ID || remaining == 0 {
		return EndCallForUser(callId, user)
	}
	return meeting, nil
}

// EndCallForUser completes the meeting on behalf of user. Only the host or
// the last participant standing may end it.
func EndCallForUser(callId string, user models.Account) (models.Meeting, error) {
	meeting, err := GetMeetingByCallID(callId)
	if err != nil {
		return meeting, err
	}

	if meeting.HostID != user.ID {
		var active int
		for _, participant := range meeting.Participants {
			if participant.LeftAt == nil {
				active++
			}
		}
		isCounted := false
		for _, participant := range meeting.Participants {
			if participant.AccountID == user.ID {
				isCounted = true
			}
		}
		if !isCounted || active > 1 {
			return meeting, fmt.Errorf("only the host or the last participant can end this meeting")
		}
	}

	meeting, err = RecordEnd(callId)
	if err != nil {
		return meeting, err
	}

	if err := CloseCallRoom(callId); err != nil {
		log.Error().Err(err).Str("call_id", callId).Msg("Unable to close room at provider side...")
	}

	RecordMeetingEvent(models.EventMeetingEnd, callId, &meeting, &user, map[string]any{
		"duration": meeting.Duration,
	})
	return meeting, nil
}

// AttachLiveParticipants decorates an ongoing meeting with the provider's
// view of who is in the room. Provider errors leave the field empty.
func AttachLiveParticipants(meeting *models.Meeting) {
	if meeting.Status != models.MeetingStatusOngoing {
		return
	}
	if participants, err := ListCallParticipants(meeting.CallID); err == nil {
		meeting.LiveParticipants = participants
	}
}
