package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lightpath/huddle/pkg/internal/services"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// issueProviderToken mints the short-lived provider credential. The route is
// reachable without a session so the provider SDK can bootstrap, but when a
// bearer token is supplied the subject must be the caller themselves.
func issueProviderToken(c *fiber.Ctx) error {
	contentType := c.Get(fiber.HeaderContentType)
	if !strings.Contains(contentType, fiber.MIMEApplicationJSON) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Content-Type must be application/json",
		})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body is empty",
		})
	}

	var data struct {
		UserID string `json:"userId"`
	}
	if err := jsoniter.Unmarshal(body, &data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON in request body",
		})
	}

	if len(data.UserID) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		if user, err := services.Authenticate(strings.TrimPrefix(header, "Bearer ")); err == nil {
			if user.Uuid != data.UserID {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": services.ErrCredentialSubjectMismatch.Error(),
				})
			}
		}
	}

	tk, err := services.IssueCredential(data.UserID)
	if err != nil {
		if errors.Is(err, services.ErrProviderNotConfigured) {
			log.Error().Err(err).Msg("Provider credential request hit missing signing configuration!")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Video provider credentials not configured",
			})
		}
		log.Error().Err(err).Msg("An error occurred when generating provider credential...")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token": tk,
	})
}
