package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpController "memorial-guestbook/internal/controller/http"
	"memorial-guestbook/internal/repo/persistent"
	"memorial-guestbook/internal/usecase"
	"memorial-guestbook/pkg/config"
	"memorial-guestbook/pkg/jwt"
	"memorial-guestbook/pkg/logger"
	"memorial-guestbook/pkg/middleware"
	"memorial-guestbook/pkg/queue"
	"memorial-guestbook/pkg/s3"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "memorial-guestbook/docs" // Swagger docs
)

func Run(cfg *config.Config, log *logger.Logger, db *gorm.DB, s3Client *s3.Client, queueClient *queue.Client, redisClient *redis.Client) {
	jwtService := jwt.NewService(cfg.JWTSecret)

	// Initialize repositories
	postRepo := persistent.NewPostRepository(db)
	adminRepo := persistent.NewAdminRepository(db)

	// Initialize use cases
	var publisher usecase.ModerationPublisher
	if queueClient != nil {
		publisher = queueClient
	}
	postUseCase := usecase.NewPostUseCase(postRepo, s3Client, publisher, log)
	adminUseCase := usecase.NewAdminUseCase(adminRepo, jwtService, log)

	// Initialize HTTP handlers
	postHandler := httpController.NewPostHandler(postUseCase, log)
	adminHandler := httpController.NewAdminHandler(adminUseCase, postUseCase, log)

	// Setup router
	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", httpController.GuestTokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Write endpoints are rate limited per client; reads stay cheap and
	// uncounted so the wall and the slideshow can poll freely.
	writeLimiter := func(c *gin.Context) { c.Next() }
	if redisClient != nil {
		writeLimiter = middleware.RateLimitMiddleware(redisClient, 30, time.Minute)
	}

	api := r.Group("/api/v1")
	{
		api.POST("/posts", writeLimiter, postHandler.CreatePost)
		api.GET("/posts", postHandler.ListPosts)
		api.GET("/posts/:id", postHandler.GetPost)
		api.PATCH("/posts/:id", writeLimiter, postHandler.UpdatePost)
		api.DELETE("/posts/:id", writeLimiter, postHandler.DeletePost)
		api.GET("/slideshow/media", postHandler.SlideshowMedia)

		api.POST("/admin/login", writeLimiter, adminHandler.Login)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/posts", adminHandler.ListAllPosts)
			admin.PATCH("/posts/:id/hidden", adminHandler.SetHidden)
			admin.PATCH("/posts/:id/pinned", adminHandler.SetPinned)
			admin.DELETE("/posts/:id", postHandler.DeletePost)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Guestbook service starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down guestbook service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Close database connection
	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("Error closing database: %v", err)
		}
	}

	// Close Redis connection
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis: %v", err)
		}
	}

	// Close RabbitMQ connection
	if queueClient != nil {
		queueClient.Close()
	}

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
		panic(err)
	}

	log.Info("Guestbook service exited")
}
