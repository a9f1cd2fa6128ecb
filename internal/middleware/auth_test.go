package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthenticator accepts the tokens in its map.
type stubAuthenticator map[string]services.Identity

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (services.Identity, error) {
	if token == "explode" {
		return services.Identity{}, errors.New("database unavailable")
	}
	id, ok := s[token]
	if !ok {
		return services.Identity{}, services.ErrUnauthenticated
	}
	return id, nil
}

var tokens = stubAuthenticator{
	"user-token":  {UserID: 1, Email: "u@x.com"},
	"admin-token": {UserID: 2, Email: "a@x.com", IsAdmin: true},
}

func buildTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Detail: "Internal server error"})
		},
	})
	whoami := func(c *fiber.Ctx) error {
		fromLocals := middleware.CurrentIdentity(c)
		fromCtx := services.IdentityFromContext(c.UserContext())
		if fromLocals == nil || fromCtx == nil || *fromLocals != *fromCtx {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"user_id": fromCtx.UserID})
	}
	app.Get("/protected", middleware.AuthRequired(tokens), whoami)
	app.Get("/admin", middleware.AuthRequired(tokens), middleware.AdminOnly(), whoami)
	app.Get("/misconfigured", middleware.AdminOnly(), whoami)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, authHeader string) (*http.Response, models.ErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var body models.ErrorResponse
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	return resp, body
}

func TestAuthRequired(t *testing.T) {
	app := buildTestApp()

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer user-token", http.StatusOK},
		{"lowercase scheme", "bearer user-token", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic user-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"authenticator failure", "Bearer explode", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, app, "/protected", tc.header)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.status == http.StatusUnauthorized {
				assert.Equal(t, "Could not validate credentials", body.Detail)
				assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	app := buildTestApp()

	resp, body := doRequest(t, app, "/admin", "Bearer user-token")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Not enough permissions", body.Detail)

	resp, _ = doRequest(t, app, "/admin", "Bearer admin-token")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, app, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, app, "/misconfigured", "Bearer admin-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
