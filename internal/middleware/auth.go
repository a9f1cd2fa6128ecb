package middleware

import (
	"context"
	"errors"
	"strings"

	"sweetshop/internal/models"
	"sweetshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LocalIdentity is the Locals key holding the authenticated services.Identity.
const LocalIdentity = "identity"

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.Identity, error)
}

// AuthRequired verifies the bearer token and loads the caller before any
// handler runs. The identity is stored in Locals and on the user context.
func AuthRequired(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c)
		}

		id, err := auth.Authenticate(c.UserContext(), tokenString)
		if errors.Is(err, services.ErrUnauthenticated) {
			return unauthorized(c)
		} else if err != nil {
			return err
		}

		c.Locals(LocalIdentity, id)
		c.SetUserContext(services.WithIdentity(c.UserContext(), id))
		return c.Next()
	}
}

// AdminOnly rejects callers without the admin role. It must run after AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := services.RequireRole(CurrentIdentity(c), services.RoleAdmin)
		switch {
		case errors.Is(err, services.ErrUnauthenticated):
			return unauthorized(c)
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{Detail: "Not enough permissions"})
		}
		return c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthRequired, or nil.
func CurrentIdentity(c *fiber.Ctx) *services.Identity {
	id, ok := c.Locals(LocalIdentity).(services.Identity)
	if !ok {
		return nil
	}
	return &id
}

// bearerToken extracts the token from "Bearer <token>". The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Detail: "Could not validate credentials"})
}
