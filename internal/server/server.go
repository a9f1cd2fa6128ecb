package server

import (
	"errors"

	"sweetshop/internal/cache"
	"sweetshop/internal/config"
	"sweetshop/internal/database"
	"sweetshop/internal/events"
	"sweetshop/internal/handlers"
	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/services"
	"sweetshop/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"
)

// Deps are the infrastructure pieces the HTTP app is built on.
// Cache and Publisher may be nil.
type Deps struct {
	Store     *database.Store
	Cache     cache.Cache
	Publisher events.Publisher
	// AccessLog enables Fiber's request logger.
	AccessLog bool
}

// NewApp wires services, handlers and middleware into a Fiber app.
func NewApp(cfg *config.Config, deps Deps) (*fiber.App, error) {
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}

	tokens, err := token.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	if err != nil {
		return nil, err
	}
	authService, err := services.NewAuthService(deps.Store.Users, tokens, cfg.JWT.BcryptCost)
	if err != nil {
		return nil, err
	}
	sweetService := services.NewSweetService(deps.Store.Sweets, deps.Cache, deps.Publisher)

	authHandler := handlers.NewAuthHandler(authService)
	sweetHandler := handlers.NewSweetHandler(sweetService)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	if deps.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to " + cfg.App.Name,
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	authRequired := middleware.AuthRequired(authService)
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1, authRequired)
	sweetHandler.RegisterRoutes(apiV1, authRequired, middleware.AdminOnly())

	return app, nil
}

// errorHandler renders errors that escaped the handlers, including
// recovered panics and Fiber's own routing errors, in the API error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Detail: fe.Message})
	}
	log.Ctx(c.UserContext()).Error().Err(err).Msg("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Detail: "Internal server error"})
}
