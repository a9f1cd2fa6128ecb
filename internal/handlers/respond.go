package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"sweetshop/internal/models"
	"sweetshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// parseBody decodes the JSON body into req and validates it.
// On failure it writes a 422 response and returns false.
func parseBody(c *fiber.Ctx, v *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		log.Ctx(c.UserContext()).Debug().Err(err).Msg("error parsing request body")
		return false, c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{
			Detail: "Invalid request body",
		})
	}
	return validate(c, v, req)
}

// validate runs struct validation and writes a 422 response on failure.
func validate(c *fiber.Ctx, v *validator.Validate, req interface{}) (bool, error) {
	err := v.Struct(req)
	if err == nil {
		return true, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, err
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = describe(e)
	}
	return false, c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{
		Detail: "Validation failed",
		Errors: errorMessages,
	})
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return "must not be empty"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return fmt.Sprintf("failed on the '%s' tag", e.Tag())
	}
}

// respondError maps service errors to HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{
			Detail: "Validation failed",
			Errors: map[string]string{verr.Field: verr.Message},
		})
	case errors.Is(err, services.ErrDuplicateEmail):
		return detail(c, fiber.StatusBadRequest, "Email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return detail(c, fiber.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, services.ErrUnauthenticated):
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	case errors.Is(err, services.ErrForbidden):
		return detail(c, fiber.StatusForbidden, "Not enough permissions")
	case errors.Is(err, services.ErrSweetNotFound):
		return detail(c, fiber.StatusNotFound, "Sweet not found")
	case errors.Is(err, services.ErrInsufficientStock):
		return detail(c, fiber.StatusBadRequest, "Insufficient quantity in stock")
	default:
		log.Ctx(c.UserContext()).Error().Err(err).Msg("request failed")
		return detail(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(models.ErrorResponse{Detail: msg})
}

// sweetID parses the :id path parameter. Anything but a non-negative integer is a 422.
func sweetID(c *fiber.Ctx) (uint, bool, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 0 {
		return 0, false, c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{
			Detail: "Validation failed",
			Errors: map[string]string{"id": "must be an integer"},
		})
	}
	return uint(id), true, nil
}
