package main

import (
	internal "memorial-guestbook/internal/app"
	"memorial-guestbook/pkg/config"
	"memorial-guestbook/pkg/database"
	"memorial-guestbook/pkg/logger"
	"memorial-guestbook/pkg/queue"
	"memorial-guestbook/pkg/s3"
)

// @title           Memorial Guestbook API
// @version         1.0
// @description     Tribute wall with guest posts, media uploads, moderation and a slideshow feed.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if cfg.JWTSecret == "your-secret-key-change-in-production" || cfg.JWTSecret == "" {
		panic("JWT_SECRET must be set in environment variables")
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	// Migrations are handled by goose - see cmd/migrate/main.go

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v", err)
		panic(err)
	}

	// Redis only backs rate limiting; run without it when unavailable.
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Redis unavailable, rate limiting disabled: %v", err)
		redisClient = nil
	}

	// RabbitMQ only carries moderation notifications; also optional.
	var queueClient *queue.Client
	if cfg.RabbitMQHost != "" {
		queueClient, err = queue.NewRabbitMQClient(cfg, log)
		if err != nil {
			log.Warn("RabbitMQ unavailable, moderation notifications disabled: %v", err)
			queueClient = nil
		}
	}

	internal.Run(cfg, log, db, s3Client, queueClient, redisClient)
}
