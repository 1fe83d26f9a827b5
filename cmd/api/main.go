package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"studentpics/internal/app"
	"studentpics/internal/auth"
	"studentpics/internal/cleanup"
	"studentpics/internal/config"
	"studentpics/internal/handler"
	"studentpics/internal/repository"
	"studentpics/internal/students"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 15*time.Second)
	defer startCancel()

	repo, err := repository.Open(startCtx, cfg.StoreDSN, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repository.Seed(startCtx, repo, cfg.SeedTeachers); err != nil {
		return err
	}

	blobs, err := app.OpenBlobs(startCtx, cfg)
	if err != nil {
		return err
	}

	checks := map[string]handler.HealthCheck{"store": repo.Healthy}
	opts := []students.Option{students.WithLogger(log.Default())}

	q, redisClient, err := app.OpenQueue(cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Healthy
	}
	if q != nil {
		opts = append(opts, students.WithCleanupScheduler(cleanup.NewScheduler(q)))
	}
	if cfg.QueueBackend == "memory" {
		// Nothing outside this process can drain an in-memory queue.
		worker := cleanup.NewWorker(q, blobs, cfg.CleanupMaxAttempts, log.Default())
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.Printf("cleanup worker stopped: %v", err)
			}
		}()
	}

	svc := students.NewService(repo, auth.NewTeachers(repo), blobs, opts...)
	h := handler.New(svc, blobs, cfg.MaxUploadBytes, checks)
	r := handler.NewRouter(h, handler.RouterConfig{
		Production:      cfg.Production(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store=%s blobs=%s queue=%s)",
			cfg.HTTPPort, storeKind(cfg.StoreDSN), cfg.BlobBackend, cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	cancel()

	log.Println("Server exited")
	return nil
}

// storeKind strips credentials from the DSN for logging.
func storeKind(dsn string) string {
	scheme, _, _ := strings.Cut(dsn, "://")
	return scheme
}
