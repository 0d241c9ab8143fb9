package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ceapp/config"
	"ceapp/handlers/api"
	"ceapp/mail"
	"ceapp/middleware"
	"ceapp/services"
	"ceapp/storage"
	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	utils.Log.Info("Initializing CEApp...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.toml"
	}

	// Load configuration
	config, err := config.LoadConfig(configPath)
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	utils.Log.SetLevel(utils.ParseLogLevel(config.Server.LogLevel))

	// Initialize i18n system
	if err := utils.InitI18n(); err != nil {
		utils.Log.Error("Failed to initialize i18n: %v", err)
	}

	db, err := storage.InitDB(config.Storage.DataDir)
	if err != nil {
		utils.Log.Error("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	images, err := storage.NewImageStore(config.Uploads.Dir, config.Uploads.BaseURL, config.Uploads.MaxWidth)
	if err != nil {
		utils.Log.Error("Failed to initialize image store: %v", err)
		os.Exit(1)
	}

	userStorage := storage.NewUserStorage(db)
	metaStorage := storage.NewMetaStorage(db)

	cooldowns := utils.NewMemoryCache(time.Minute)
	defer cooldowns.Close()

	limiter := middleware.NewRateLimiter(config.RateLimit.Requests, config.RateLimit.Window.Duration)
	defer limiter.Stop()

	events := api.NewNotificationHandler()

	colorService := services.NewColorService(userStorage, metaStorage, images)
	colorService.SetNotifier(events)
	accountService := services.NewAccountService(
		userStorage,
		metaStorage,
		images,
		mail.NewSMTPClient(config.SMTP),
		cooldowns,
		config.Recover.Cooldown.Duration,
	)

	app := fiber.New(fiber.Config{
		AppName:      "CEApp",
		BodyLimit:    config.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler: api.ErrorHandler,
	})

	// Add global middleware
	app.Use(recover.New())  // Recover from panics
	app.Use(logger.New())   // Request logging
	app.Use(compress.New(compress.Config{ // Response compression
		// event streams must reach the client unbuffered
		Next: func(c *fiber.Ctx) bool { return strings.HasSuffix(c.Path(), "/events") },
	}))
	app.Use(helmet.New(helmet.Config{ // Security headers
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
		// Stored images are embedded by the mobile and web clients
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Add locale middleware
	app.Use(middleware.LocaleMiddleware(config.Server.Language))

	// Serve stored images
	app.Static("/uploads", config.Uploads.Dir, fiber.Static{
		CacheDuration: 24 * time.Hour,
	})

	api.RegisterRoutes(app, []byte(config.JWT.Secret),
		api.NewUsersHandler(accountService),
		api.NewColorsHandler(colorService),
		events,
		limiter.Handler(),
	)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 404 Handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		utils.Log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.Log.Error("Error during shutdown: %v", err)
		}
	}()

	// Start server
	utils.Log.Info("Starting server on port %d...", config.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", config.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}
