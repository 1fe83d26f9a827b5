package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"studentpics/internal/app"
	"studentpics/internal/cleanup"
	"studentpics/internal/config"
)

// Worker drains the redis cleanup queue, deleting replaced pictures the API
// could not remove while serving an upload.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker requires QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	blobs, err := app.OpenBlobs(ctx, cfg)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	q, redisClient, err := app.OpenQueue(cfg)
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	defer redisClient.Close()

	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, will keep retrying", cfg.RedisAddr)
	}

	log.Println("worker started, waiting for messages...")
	if err := cleanup.NewWorker(q, blobs, cfg.CleanupMaxAttempts, log.Default()).Run(ctx); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
	log.Println("worker stopped")
}
