package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightpath/huddle/pkg/internal/database"
	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidTransition = errors.New("illegal meeting status transition")
	ErrMeetingNotFound   = errors.New("no meeting found for this call")
)

// DurationToleranceMinutes bounds how far an explicitly supplied duration may
// deviate from the one derived from start/end timestamps. One minute matches
// the floor granularity of derived durations.
const DurationToleranceMinutes = 1

func deriveDuration(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

// CreateOrGetMeeting returns the meeting record for callId, creating one in
// scheduled status when none exists. Uniqueness is enforced by the store's
// index on call_id, so clients racing to join the same call converge on a
// single record.
func CreateOrGetMeeting(callId string, host models.Account, seed models.Meeting) (models.Meeting, error) {
	if meeting, err := GetMeetingByCallID(callId); err == nil {
		return meeting, nil
	} else if !errors.Is(err, ErrMeetingNotFound) {
		return meeting, err
	}

	meeting := models.Meeting{
		Uuid:             uuid.NewString(),
		Title:            seed.Title,
		Description:      seed.Description,
		CallID:           callId,
		Status:           models.MeetingStatusScheduled,
		Duration:         0,
		ParticipantCount: 0,
		HostID:           host.ID,
	}
	if len(meeting.Title) == 0 {
		meeting.Title = fmt.Sprintf("Call %s", callId)
	}

	if err := database.C.Create(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race; someone else created it first.
			return GetMeetingByCallID(callId)
		}
		return meeting, err
	}

	return GetMeetingByCallID(callId)
}

func GetMeetingByCallID(callId string) (models.Meeting, error) {
	var meeting models.Meeting
	if err := database.C.
		Where(&models.Meeting{CallID: callId}).
		Preload("Host").
		Preload("Participants").
		Preload("Participants.Account").
		First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return meeting, ErrMeetingNotFound
		}
		return meeting, err
	}
	return meeting, nil
}

func GetMeeting(alias string) (models.Meeting, error) {
	var meeting models.Meeting
	if err := database.C.
		Where(&models.Meeting{Uuid: alias}).
		Preload("Host").
		Preload("Participants").
		Preload("Participants.Account").
		First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return meeting, ErrMeetingNotFound
		}
		return meeting, err
	}
	return meeting, nil
}

func ListMeetingsForUser(user models.Account, take, offset int) ([]models.Meeting, error) {
	if take <= 0 {
		take = 10
	}

	var meetings []models.Meeting
	if err := database.C.
		Where(
			"host_id = ? OR id IN (?)", user.ID,
			database.C.Model(&models.MeetingParticipant{}).
				Select("meeting_id").
				Where("account_id = ?", user.ID),
		).
		Limit(take).
		Offset(offset).
		Preload("Host").
		Order("created_at DESC").
		Find(&meetings).Error; err != nil {
		return meetings, err
	}
	return meetings, nil
}

// ListMeetingHistory lists the user's finished meetings, most recent first.
func ListMeetingHistory(user models.Account, take int) ([]models.Meeting, error) {
	if take <= 0 {
		take = 10
	}

	var meetings []models.Meeting
	if err := database.C.
		Where(
			"host_id = ? OR id IN (?)", user.ID,
			database.C.Model(&models.MeetingParticipant{}).
				Select("meeting_id").
				Where("account_id = ?", user.ID),
		).
		Where("status IN ?", []models.MeetingStatus{
			models.MeetingStatusCompleted,
			models.MeetingStatusCancelled,
		}).
		Limit(take).
		Preload("Host").
		Order("created_at DESC").
		Find(&meetings).Error; err != nil {
		return meetings, err
	}
	return meetings, nil
}

// applyStatus validates and applies a transition on an already loaded and
// locked record, together with the timestamps that come with it. The record
// is mutated in memory only; the caller persists it.
func applyStatus(meeting *models.Meeting, next models.MeetingStatus) error {
	if meeting.Status == next {
		return nil
	}
	if !models.CanTransitMeetingStatus(meeting.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, meeting.Status, next)
	}

	now := time.Now()
	switch next {
	case models.MeetingStatusOngoing:
		if meeting.StartedAt == nil {
			meeting.StartedAt = lo.ToPtr(now)
		}
	case models.MeetingStatusCompleted:
		meeting.EndedAt = lo.ToPtr(now)
		if meeting.StartedAt != nil {
			meeting.Duration = deriveDuration(*meeting.StartedAt, now)
		}
	}

	meeting.Status = next
	return nil
}

// lockForUpdate takes a row lock where the dialect supports one; sqlite has
// no row locks and its single-writer transactions already serialize updates.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockMeetingByCallID(tx *gorm.DB, callId string) (models.Meeting, error) {
	var meeting models.Meeting
	if err := lockForUpdate(tx).
		Where(&models.Meeting{CallID: callId}).
		First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return meeting, ErrMeetingNotFound
		}
		return meeting, err
	}
	return meeting, nil
}

// UpdateMeetingStatus enforces the transition table; a disallowed transition
// leaves the record untouched.
func UpdateMeetingStatus(callId string, next models.MeetingStatus) (models.Meeting, error) {
	var out models.Meeting
	err := database.C.Transaction(func(tx *gorm.DB) error {
		meeting, err := lockMeetingByCallID(tx, callId)
		if err != nil {
			return err
		}
		if err := applyStatus(&meeting, next); err != nil {
			return err
		}
		if err := tx.Save(&meeting).Error; err != nil {
			return err
		}
		out = meeting
		return nil
	})
	if err != nil {
		return out, err
	}
	return GetMeetingByCallID(callId)
}

// RecordJoin adds user to the participant set of the meeting behind callId.
// Participants are counted once no matter how many times they rejoin; the
// first join moves a scheduled meeting to ongoing and stamps its start time.
func RecordJoin(callId string, user models.Account) (models.Meeting, error) {
	err := database.C.Transaction(func(tx *gorm.DB) error {
		meeting, err := lockMeetingByCallID(tx, callId)
		if err != nil {
			return err
		}
		if meeting.IsOver() {
			return fmt.Errorf("%w: cannot join a %s meeting", ErrInvalidTransition, meeting.Status)
		}

		participant := models.MeetingParticipant{
			MeetingID: meeting.ID,
			AccountID: user.ID,
			JoinedAt:  time.Now(),
		}
		// Set semantics on (meeting, account); a lost insert means the
		// user was already counted.
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Rejoin; clear any recorded leave, the counter stays put.
			if err := tx.Model(&models.MeetingParticipant{}).
				Where("meeting_id = ? AND account_id = ?", meeting.ID, user.ID).
				Update("left_at", nil).Error; err != nil {
				return err
			}
		} else {
			meeting.ParticipantCount++
		}

		if meeting.Status == models.MeetingStatusScheduled {
			if err := applyStatus(&meeting, models.MeetingStatusOngoing); err != nil {
				return err
			}
		}

		return tx.Save(&meeting).Error
	})
	if err != nil {
		return models.Meeting{}, err
	}
	return GetMeetingByCallID(callId)
}

// RecordLeave stamps the participant's leave time and reports how many
// counted participants are still in the call. It never ends the meeting by
// itself; that authority stays with EndCallForUser.
func RecordLeave(callId string, user models.Account) (models.Meeting, int, error) {
	var remaining int64
	err := database.C.Transaction(func(tx *gorm.DB) error {
		meeting, err := lockMeetingByCallID(tx, callId)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.MeetingParticipant{}).
			Where("meeting_id = ? AND account_id = ? AND left_at IS NULL", meeting.ID, user.ID).
			Update("left_at", time.Now()).Error; err != nil {
			return err
		}

		return tx.Model(&models.MeetingParticipant{}).
			Where("meeting_id = ? AND left_at IS NULL", meeting.ID).
			Count(&remaining).Error
	})
	if err != nil {
		return models.Meeting{}, 0, err
	}

	meeting, err := GetMeetingByCallID(callId)
	return meeting, int(remaining), err
}

// RecordEnd completes the meeting and derives its duration in floored
// minutes from the recorded start time.
func RecordEnd(callId string) (models.Meeting, error) {
	return UpdateMeetingStatus(callId, models.MeetingStatusCompleted)
}

func CancelMeeting(callId string) (models.Meeting, error) {
	return UpdateMeetingStatus(callId, models.MeetingStatusCancelled)
}

type MeetingPatch struct {
	Title            *string               `json:"title"`
	Description      *string               `json:"description"`
	Status           *models.MeetingStatus `json:"status"`
	StartedAt        *time.Time            `json:"started_at"`
	EndedAt          *time.Time            `json:"ended_at"`
	Duration         *int                  `json:"duration"`
	ParticipantCount *int                  `json:"participant_count"`
}

// EditMeeting applies a partial update. Status changes still go through the
// transition table, and an explicit duration that conflicts with the
// start/end derived one beyond the tolerance is rejected; end minus start is
// authoritative.
func EditMeeting(alias string, patch MeetingPatch) (models.Meeting, error) {
	var callId string
	err := database.C.Transaction(func(tx *gorm.DB) error {
		var meeting models.Meeting
		if err := lockForUpdate(tx).
			Where(&models.Meeting{Uuid: alias}).
			First(&meeting).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMeetingNotFound
			}
			return err
		}
		callId = meeting.CallID

		if patch.Title != nil {
			meeting.Title = *patch.Title
		}
		if patch.Description != nil {
			meeting.Description = patch.Description
		}
		if patch.Status != nil {
			if err := applyStatus(&meeting, *patch.Status); err != nil {
				return err
			}
		}
		if patch.StartedAt != nil {
			meeting.StartedAt = patch.StartedAt
		}
		if patch.EndedAt != nil {
			meeting.EndedAt = patch.EndedAt
		}
		if patch.ParticipantCount != nil {
			if *patch.ParticipantCount < 0 {
				return fmt.Errorf("participant count cannot be negative")
			}
			meeting.ParticipantCount = *patch.ParticipantCount
		}

		if meeting.StartedAt != nil && meeting.EndedAt != nil {
			derived := deriveDuration(*meeting.StartedAt, *meeting.EndedAt)
			if patch.Duration != nil {
				diff := derived - *patch.Duration
				if diff < 0 {
					diff = -diff
				}
				if diff > DurationToleranceMinutes {
					return fmt.Errorf("duration %d conflicts with start/end timestamps (derived %d)", *patch.Duration, derived)
				}
			}
			meeting.Duration = derived
		} else if patch.Duration != nil {
			if *patch.Duration < 0 {
				return fmt.Errorf("duration cannot be negative")
			}
			meeting.Duration = *patch.Duration
		}

		return tx.Save(&meeting).Error
	})
	if err != nil {
		return models.Meeting{}, err
	}
	return GetMeetingByCallID(callId)
}

func DeleteMeeting(alias string) error {
	meeting, err := GetMeeting(alias)
	if err != nil {
		return err
	}
	return database.C.Delete(&meeting).Error
}
