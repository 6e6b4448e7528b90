package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/mydrawer/mydrawer-server/internal/api"
	"github.com/mydrawer/mydrawer-server/internal/chat"
	"github.com/mydrawer/mydrawer-server/internal/config"
	"github.com/mydrawer/mydrawer-server/internal/database"
	"github.com/mydrawer/mydrawer-server/internal/providers"
	"github.com/mydrawer/mydrawer-server/internal/providers/factory"
	"github.com/mydrawer/mydrawer-server/internal/repository/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("MYDRAWER_LOG_JSON") != "" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	app := fiber.New(fiber.Config{
		AppName: "MyDrawer Server",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: getOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	conversationRepo := postgres.NewConversationRepository(db.DB)
	folderRepo := postgres.NewFolderRepository(db.DB)
	messageRepo := postgres.NewMessageRepository(db.DB)

	registry := providers.NewRegistry()
	for id, pc := range cfg.Providers {
		provider, err := factory.CreateProvider(id, pc)
		if err != nil {
			log.WithFields(logrus.Fields{"provider": id, "error": err}).Warn("Skipping provider")
			continue
		}
		registry.Register(id, provider)
	}
	log.WithField("providers", registry.List()).Info("Providers registered")

	svc := chat.NewService(cfg, registry, conversationRepo, folderRepo, messageRepo, log)
	api.SetupRoutes(app, svc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("Starting server")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func getOrigins() string {
	if origins := os.Getenv("MYDRAWER_ALLOWED_ORIGINS"); origins != "" {
		return origins
	}
	return "http://localhost:5173,http://localhost:3000"
}
