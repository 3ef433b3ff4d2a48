package services

import (
	"github.com/google/uuid"
	"github.com/lightpath/huddle/pkg/internal/database"
	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

// RecordMeetingEvent appends to the meeting audit trail. Best-effort: a
// failed write is logged, never propagated, so bookkeeping noise cannot take
// down the call path it describes.
func RecordMeetingEvent(eventType, callId string, meeting *models.Meeting, account *models.Account, body map[string]any) {
	event := models.MeetingEvent{
		Uuid:   uuid.NewString(),
		Type:   eventType,
		CallID: callId,
		Body:   datatypes.JSONMap(body),
	}
	if meeting != nil {
		event.MeetingID = lo.ToPtr(meeting.ID)
	}
	if account != nil {
		event.AccountID = lo.ToPtr(account.ID)
	}

	if err := database.C.Create(&event).Error; err != nil {
		log.Error().Err(err).
			Str("type", eventType).
			Str("call_id", callId).
			Msg("An error occurred when recording meeting event...")
	}
}
