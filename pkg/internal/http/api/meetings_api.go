package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/lightpath/huddle/pkg/internal/http/exts"
	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/lightpath/huddle/pkg/internal/services"
)

func mapMeetingError(err error) error {
	switch {
	case errors.Is(err, services.ErrMeetingNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func listMeetings(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 10)
	offset := c.QueryInt("offset", 0)

	meetings, err := services.ListMeetingsForUser(user, take, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(meetings)
}

func listMeetingHistory(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	limit := c.QueryInt("limit", 10)

	meetings, err := services.ListMeetingHistory(user, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(meetings)
}

func createMeeting(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data struct {
		Title       string  `json:"title" validate:"required,max=256"`
		Description *string `json:"description"`
		CallID      string  `json:"call_id" validate:"required,max=128"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	meeting, err := services.CreateOrGetMeeting(data.CallID, user, models.Meeting{
		Title:       data.Title,
		Description: data.Description,
	})
	if err != nil {
		return mapMeetingError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(meeting)
}

func getMeeting(c *fiber.Ctx) error {
	meeting, err := services.GetMeeting(c.Params("meetingId"))
	if err != nil {
		return mapMeetingError(err)
	}
	services.AttachLiveParticipants(&meeting)
	return c.JSON(meeting)
}

func editMeeting(c *fiber.Ctx) error {
	var patch services.MeetingPatch
	if err := exts.BindAndValidate(c, &patch); err != nil {
		return err
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.MeetingStatusScheduled, models.MeetingStatusOngoing,
			models.MeetingStatusCompleted, models.MeetingStatusCancelled:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "unknown meeting status")
		}
	}

	meeting, err := services.EditMeeting(c.Params("meetingId"), patch)
	if err != nil {
		if errors.Is(err, services.ErrMeetingNotFound) || errors.Is(err, services.ErrInvalidTransition) {
			return mapMeetingError(err)
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(meeting)
}

func deleteMeeting(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	meeting, err := services.GetMeeting(c.Params("meetingId"))
	if err != nil {
		return mapMeetingError(err)
	}
	if meeting.HostID != user.ID {
		return fiber.NewError(fiber.StatusForbidden, "only the host can delete a meeting")
	}

	if err := services.DeleteMeeting(c.Params("meetingId")); err != nil {
		return mapMeetingError(err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// The id-keyed lifecycle routes resolve to the call id and share the by-call
// implementations.

func joinMeeting(c *fiber.Ctx) error {
	meeting, err := services.GetMeeting(c.Params("meetingId"))
	if err != nil {
		return mapMeetingError(err)
	}
	return respondJoin(c, meeting.CallID)
}

func startMeeting(c *fiber.Ctx) error {
	meeting, err := services.GetMeeting(c.Params("meetingId"))
	if err != nil {
		return mapMeetingError(err)
	}
	return respondStart(c, meeting.CallID)
}

func endMeeting(c *fiber.Ctx) error {
	meeting, err := services.GetMeeting(c.Params("meetingId"))
	if err != nil {
		return mapMeetingError(err)
	}
	return respondEnd(c, meeting.CallID)
}

func getMeetingByCall(c *fiber.Ctx) error {
	meeting, err := services.GetMeetingByCallID(c.Params("callId"))
	if err != nil {
		if errors.Is(err, services.ErrMeetingNotFound) {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return mapMeetingError(err)
	}
	services.AttachLiveParticipants(&meeting)
	return c.JSON(meeting)
}

// createOrGetMeetingByCall is the idempotent entry of the join flow: it
// returns the meeting record plus a provider credential for the caller.
func createOrGetMeetingByCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	callId := c.Params("callId")

	var data struct {
		Title       string  `json:"title" validate:"max=256"`
		Description *string `json:"description"`
	}
	if len(c.Body()) > 0 {
		if err := exts.BindAndValidate(c, &data); err != nil {
			return err
		}
	}

	ticket, err := services.StartOrJoinCall(callId, user, models.Meeting{
		Title:       data.Title,
		Description: data.Description,
	})
	if err != nil {
		if errors.Is(err, services.ErrProviderNotConfigured) {
			return fiber.NewError(fiber.StatusInternalServerError, "video provider is not configured")
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(ticket)
}

func respondJoin(c *fiber.Ctx, callId string) error {
	user := c.Locals("user").(models.Account)
	meeting, err := services.JoinCall(callId, user)
	if err != nil {
		return mapMeetingError(err)
	}
	return c.JSON(meeting)
}

func respondStart(c *fiber.Ctx, callId string) error {
	meeting, err := services.UpdateMeetingStatus(callId, models.MeetingStatusOngoing)
	if err != nil {
		return mapMeetingError(err)
	}
	return c.JSON(meeting)
}

func respondEnd(c *fiber.Ctx, callId string) error {
	user := c.Locals("user").(models.Account)
	meeting, err := services.EndCallForUser(callId, user)
	if err != nil {
		if errors.Is(err, services.ErrMeetingNotFound) || errors.Is(err, services.ErrInvalidTransition) {
			return mapMeetingError(err)
		}
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}
	return c.JSON(meeting)
}

func joinMeetingByCall(c *fiber.Ctx) error {
	return respondJoin(c, c.Params("callId"))
}

func leaveMeetingByCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	meeting, err := services.LeaveCall(c.Params("callId"), user)
	if err != nil {
		return mapMeetingError(err)
	}
	return c.JSON(meeting)
}

func startMeetingByCall(c *fiber.Ctx) error {
	return respondStart(c, c.Params("callId"))
}

func endMeetingByCall(c *fiber.Ctx) error {
	return respondEnd(c, c.Params("callId"))
}
