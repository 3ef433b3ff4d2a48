package api

import (
	"github.com/gofiber/fiber/v2"
	pkg "github.com/lightpath/huddle/pkg/internal"
)

func MapAPIs(app *fiber.App) {
	app.Get("/.well-known", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":    "Huddle",
			"version": pkg.AppVersion,
		})
	})

	app.Post("/api/generate-token", issueProviderToken)

	app.Post("/auth/login", doLogin)
	app.Post("/auth/logout", authMiddleware, doLogout)
	app.Post("/auth/profile", authMiddleware, getProfile)
	app.Post("/users", doRegister)

	meetings := app.Group("/meetings").Use(authMiddleware).Name("Meetings API")
	{
		meetings.Get("/", listMeetings)
		meetings.Post("/", createMeeting)
		meetings.Get("/history", listMeetingHistory)

		byCall := meetings.Group("/by-call").Name("Meetings by call id")
		{
			byCall.Get("/:callId", getMeetingByCall)
			byCall.Post("/:callId", createOrGetMeetingByCall)
			byCall.Post("/:callId/join", joinMeetingByCall)
			byCall.Post("/:callId/leave", leaveMeetingByCall)
			byCall.Post("/:callId/start", startMeetingByCall)
			byCall.Post("/:callId/end", endMeetingByCall)
		}

		meetings.Get("/:meetingId", getMeeting)
		meetings.Patch("/:meetingId", editMeeting)
		meetings.Delete("/:meetingId", deleteMeeting)
		meetings.Post("/:meetingId/join", joinMeeting)
		meetings.Post("/:meetingId/start", startMeeting)
		meetings.Post("/:meetingId/end", endMeeting)
	}
}
