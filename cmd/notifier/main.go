package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"memorial-guestbook/pkg/config"
	"memorial-guestbook/pkg/logger"
	"memorial-guestbook/pkg/queue"
)

// The notifier drains the moderation queue and surfaces every new
// tribute to whoever watches the logs, so admins hear about posts
// without polling the dashboard.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New()
	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v", err)
		panic(err)
	}
	defer queueClient.Close()

	log.Info("Starting moderation queue processor...")
	err = queueClient.ConsumeNewPosts(func(task map[string]interface{}) error {
		taskType, _ := task["type"].(string)
		if taskType != "new_post" {
			return fmt.Errorf("unknown moderation task type: %s", taskType)
		}

		postID, _ := task["post_id"].(string)
		guestName, _ := task["guest_name"].(string)
		mediaCount, _ := task["media_count"].(float64)
		log.Info("New tribute awaiting review: post_id=%s guest_name=%s media_count=%d",
			postID, guestName, int(mediaCount))
		return nil
	})
	if err != nil {
		log.Error("Error starting moderation queue consumer: %v", err)
		panic(err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notifier...")
}
