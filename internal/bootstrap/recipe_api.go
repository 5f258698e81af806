package bootstrap

import (
	"strings"

	httpin "recipe_server/adapter/in/http"
	"recipe_server/config"
	"recipe_server/infra/middleware"
	"recipe_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI assembles the Fiber application.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "recipeshare-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             12 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(cfg),
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	// Unauthenticated surface
	httpin.NewHealthHandler(deps.Mongo, deps.Redis).Register(app)

	// Authenticated API
	api := app.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret))

	httpin.NewAccountHandler(deps.Resolver, deps.Profiles).Register(api)
	httpin.NewContentHandler(deps.Resolver, deps.Engagement).Register(api)
	httpin.NewAdminHandler(deps.Resolver, deps.AdminGate, deps.Migration, deps.Cleanup).Register(api)

	return app, cleanup, nil
}

func allowedOrigins(cfg *config.Config) string {
	if len(cfg.AllowedOrigins) > 0 {
		return strings.Join(cfg.AllowedOrigins, ",")
	}
	if cfg.IsProduction() {
		return ""
	}
	return "http://localhost:3000,http://localhost:5173"
}
