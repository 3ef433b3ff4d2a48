package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lightpath/huddle/pkg/internal/http/exts"
	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/lightpath/huddle/pkg/internal/services"
)

// authMiddleware exchanges the bearer header for the account it belongs to
// and stashes it in locals. Rejected or missing tokens stop the request.
func authMiddleware(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) == 0 || !strings.HasPrefix(header, "Bearer ") {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}

	user, err := services.Authenticate(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}

	c.Locals("user", user)
	return c.Next()
}

func doLogin(c *fiber.Ctx) error {
	var data struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	user, tk, err := services.LoginAccount(data.Email, data.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"access_token": tk,
		"user":         user,
	})
}

func doRegister(c *fiber.Ctx) error {
	var data struct {
		Name     string  `json:"name" validate:"required,max=96"`
		Email    string  `json:"email" validate:"required,email"`
		Password string  `json:"password" validate:"required,min=8,max=72"`
		Avatar   *string `json:"avatar"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	user, err := services.CreateAccount(data.Name, data.Email, data.Password, data.Avatar)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// doLogout acknowledges a logout. Bearer tokens are stateless, so there is
// nothing to revoke server side; clients clear their own persisted state.
func doLogout(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func getProfile(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	return c.JSON(user)
}
