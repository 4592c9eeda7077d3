package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/epicollect5/epicollect5-server-sub006/bootstrap"
	"github.com/epicollect5/epicollect5-server-sub006/config"
	"github.com/epicollect5/epicollect5-server-sub006/database"
	"github.com/epicollect5/epicollect5-server-sub006/internal/middleware"
	"github.com/epicollect5/epicollect5-server-sub006/internal/routes"
)

func main() {

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Load configuration
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		panic("JWT_SECRET is required")
	}

	// Connect to the database
	client := database.ConnectMongo(cfg.MongoURI, cfg.MongoDB)
	defer client.Disconnect(nil)

	if err := bootstrap.EnsureEntryIndexes(database.DB); err != nil {
		log.Fatalf("ensure indexes failed: %v", err)
	}

	// Fiber app
	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Health
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	app.Use(middleware.JWTUidAndRole(cfg.JWTSecret))

	// Routes
	routes.SetupEntries(app, cfg)

	zap.S().Infow("server starting", "port", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
