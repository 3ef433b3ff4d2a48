package models

import (
	"time"

	"github.com/livekit/protocol/livekit"
)

type MeetingStatus = string

const (
	MeetingStatusScheduled = MeetingStatus("scheduled")
	MeetingStatusOngoing   = MeetingStatus("ongoing")
	MeetingStatusCompleted = MeetingStatus("completed")
	MeetingStatusCancelled = MeetingStatus("cancelled")
)

// meetingTransitions is the authoritative status machine. Completed and
// cancelled are terminal.
var meetingTransitions = map[MeetingStatus][]MeetingStatus{
	MeetingStatusScheduled: {MeetingStatusOngoing, MeetingStatusCancelled},
	MeetingStatusOngoing:   {MeetingStatusCompleted, MeetingStatusCancelled},
	MeetingStatusCompleted: {},
	MeetingStatusCancelled: {},
}

func CanTransitMeetingStatus(from, to MeetingStatus) bool {
	for _, next := range meetingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Meeting struct {
	BaseModel

	Uuid        string  `json:"uuid" gorm:"uniqueIndex"`
	Title       string  `json:"title"`
	Description *string `json:"description"`

	// CallID is the externally shareable identifier of the live call room.
	// Unique and immutable once set; idempotent creation keys on it.
	CallID string `json:"call_id" gorm:"uniqueIndex"`

	Status    MeetingStatus `json:"status" gorm:"default:scheduled"`
	StartedAt *time.Time    `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at"`

	// Duration in whole minutes, floored from EndedAt - StartedAt.
	Duration         int `json:"duration"`
	ParticipantCount int `json:"participant_count"`

	HostID       uint                 `json:"host_id"`
	Host         Account              `json:"host"`
	Participants []MeetingParticipant `json:"participants"`

	LiveParticipants []*livekit.ParticipantInfo `json:"live_participants,omitempty" gorm:"-"`
}

func (v Meeting) IsOver() bool {
	return v.Status == MeetingStatusCompleted || v.Status == MeetingStatusCancelled
}

type MeetingParticipant struct {
	BaseModel

	MeetingID uint       `json:"meeting_id" gorm:"uniqueIndex:idx_meeting_account"`
	AccountID uint       `json:"account_id" gorm:"uniqueIndex:idx_meeting_account"`
	Account   Account    `json:"account"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at"`
}
