// Package app wires configured backends for the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"log"

	"studentpics/internal/blob"
	"studentpics/internal/cloudinary"
	"studentpics/internal/config"
	"studentpics/internal/queue"
	"studentpics/internal/store"
	"studentpics/internal/students"
)

// CleanupQueueKey is the redis list holding pending blob deletions.
const CleanupQueueKey = "studentpics:cleanup"

// OpenBlobs returns the picture store selected by BLOB_BACKEND.
func OpenBlobs(ctx context.Context, cfg config.App) (students.BlobStore, error) {
	switch cfg.BlobBackend {
	case "local":
		return blob.NewLocal(cfg.UploadDir)
	case "minio":
		return blob.NewMinIO(ctx, blob.MinIOConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
	case "cloudinary":
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
		}
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
		return cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// OpenQueue returns the cleanup queue selected by QUEUE_BACKEND, or nil for
// "none". The returned redis handle is nil unless the redis backend is used.
func OpenQueue(cfg config.App) (queue.Queue, *store.Redis, error) {
	switch cfg.QueueBackend {
	case "none":
		return nil, nil, nil
	case "memory":
		return queue.NewInMemory(64), nil, nil
	case "redis":
		rc, err := store.NewRedis(cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return queue.NewRedisQueue(rc.Client, CleanupQueueKey), rc, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}
