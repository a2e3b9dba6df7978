package main

import (
	"flag"
	"fmt"
	"os"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/repo/persistent"
	"memorial-guestbook/pkg/config"
	"memorial-guestbook/pkg/database"
	"memorial-guestbook/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	var demo bool
	flag.BoolVar(&demo, "demo", false, "also create a few demo posts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	if err := seedAdmin(db, log); err != nil {
		log.Error("Failed to seed admin: %v", err)
		panic(err)
	}

	if demo {
		if err := seedDemoPosts(db, log); err != nil {
			log.Error("Failed to seed demo posts: %v", err)
			panic(err)
		}
	}

	log.Info("Database seeded successfully!")
}

func seedAdmin(db *gorm.DB, log *logger.Logger) error {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return fmt.Errorf("ADMIN_PASSWORD must be set")
	}

	adminRepo := persistent.NewAdminRepository(db)
	if _, err := adminRepo.GetByUsername(username); err == nil {
		log.Info("Admin %q already exists, skipping", username)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := adminRepo.Create(&entity.Admin{
		Username:     username,
		PasswordHash: string(hash),
	}); err != nil {
		return err
	}

	log.Info("Created admin %q", username)
	return nil
}

func seedDemoPosts(db *gorm.DB, log *logger.Logger) error {
	postRepo := persistent.NewPostRepository(db)

	demoPosts := []struct {
		name    string
		message string
		pinned  bool
	}{
		{"The Family", "Thank you all for coming and sharing your memories with us.", true},
		{"Maria", "I will never forget the summers at the lake house. Rest easy.", false},
		{"Tom", "A mentor, a friend, and the best fishing partner anyone could ask for.", false},
	}

	for _, p := range demoPosts {
		post := &entity.Post{
			GuestName:  p.name,
			Message:    p.message,
			GuestToken: uuid.New().String(),
			IsPinned:   p.pinned,
		}
		if err := postRepo.Create(post); err != nil {
			return err
		}
		log.Info("Created demo post by %q", p.name)
	}

	return nil
}
