package services

import (
	"time"

	"github.com/lightpath/huddle/pkg/internal/database"
	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func DoAutoDatabaseCleanup() {
	deadline := time.Now().Add(-30 * 24 * time.Hour)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up entire database...")

	var count int64
	for _, model := range database.AutoMaintainRange {
		tx := database.C.Unscoped().Delete(model, "deleted_at IS NOT NULL AND deleted_at < ?", deadline)
		if tx.Error != nil {
			log.Error().Err(tx.Error).Msg("An error occurred when running database cleanup...")
		}
		count += tx.RowsAffected
	}

	log.Debug().Int64("affected", count).Msg("Clean up entire database accomplished.")
}

// DoAutoCancelStaleMeetings cancels scheduled meetings that nobody ever
// joined within the configured staleness window.
func DoAutoCancelStaleMeetings() {
	stale := viper.GetInt("meetings.stale_after_minutes")
	if stale <= 0 {
		stale = 24 * 60
	}
	deadline := time.Now().Add(-time.Duration(stale) * time.Minute)

	var meetings []models.Meeting
	if err := database.C.
		Where("status = ? AND participant_count = 0 AND created_at < ?", models.MeetingStatusScheduled, deadline).
		Find(&meetings).Error; err != nil {
		log.Error().Err(err).Msg("An error occurred when looking up stale meetings...")
		return
	}

	for _, meeting := range meetings {
		if _, err := CancelMeeting(meeting.CallID); err != nil {
			log.Error().Err(err).Str("call_id", meeting.CallID).Msg("Unable to cancel stale meeting...")
		}
	}

	if len(meetings) > 0 {
		log.Info().Int("count", len(meetings)).Msg("Cancelled stale scheduled meetings.")
	}
}

// DoReconcileOngoingCalls ends meeting records whose provider room has gone
// away, so abandoned calls do not stay ongoing forever.
func DoReconcileOngoingCalls() {
	var meetings []models.Meeting
	if err := database.C.
		Where("status = ?", models.MeetingStatusOngoing).
		Find(&meetings).Error; err != nil {
		log.Error().Err(err).Msg("An error occurred when looking up ongoing meetings...")
		return
	}

	for _, meeting := range meetings {
		participants, err := ListCallParticipants(meeting.CallID)
		if err != nil {
			// Cannot observe the provider; leave the record alone.
			log.Warn().Err(err).Str("call_id", meeting.CallID).Msg("Unable to list room participants...")
			continue
		}
		if len(participants) > 0 {
			continue
		}
		if _, err := RecordEnd(meeting.CallID); err != nil {
			log.Error().Err(err).Str("call_id", meeting.CallID).Msg("Unable to reconcile abandoned call...")
			continue
		}
		RecordMeetingEvent(models.EventMeetingEnd, meeting.CallID, &meeting, nil, map[string]any{
			"reason": "reconciled",
		})
	}
}
