package models

import (
	"gorm.io/datatypes"
)

const (
	EventMeetingJoin  = "meetings.join"
	EventMeetingLeave = "meetings.leave"
	EventMeetingStart = "meetings.start"
	EventMeetingEnd   = "meetings.end"

	// EventMeetingMiss marks a join attempt whose registry bookkeeping
	// failed while the live call proceeded anyway.
	EventMeetingMiss = "meetings.bookkeeping_miss"
)

type MeetingEvent struct {
	BaseModel

	Uuid string            `json:"uuid"`
	Type string            `json:"type"`
	Body datatypes.JSONMap `json:"body"`

	// CallID is recorded even when no meeting row exists, so missed
	// bookkeeping stays discoverable.
	CallID    string   `json:"call_id" gorm:"index"`
	MeetingID *uint    `json:"meeting_id"`
	Meeting   *Meeting `json:"meeting,omitempty"`
	AccountID *uint    `json:"account_id"`
}
