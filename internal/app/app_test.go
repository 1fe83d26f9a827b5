package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpics/internal/blob"
	"studentpics/internal/cloudinary"
	"studentpics/internal/config"
	"studentpics/internal/queue"
)

func TestOpenBlobs(t *testing.T) {
	ctx := context.Background()

	b, err := OpenBlobs(ctx, config.App{BlobBackend: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &blob.Local{}, b)

	b, err = OpenBlobs(ctx, config.App{
		BlobBackend:         "cloudinary",
		CloudinaryCloudName: "demo",
		CloudinaryAPIKey:    "key",
		CloudinaryAPISecret: "secret",
	})
	require.NoError(t, err)
	assert.IsType(t, &cloudinary.Client{}, b)

	_, err = OpenBlobs(ctx, config.App{BlobBackend: "cloudinary"})
	assert.Error(t, err)

	_, err = OpenBlobs(ctx, config.App{BlobBackend: "minio"})
	assert.ErrorContains(t, err, "incomplete")
}

func TestOpenQueue(t *testing.T) {
	q, rc, err := OpenQueue(config.App{QueueBackend: "none"})
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.Nil(t, rc)

	q, _, err = OpenQueue(config.App{QueueBackend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &queue.InMemory{}, q)

	mr := miniredis.RunT(t)
	q, rc, err = OpenQueue(config.App{QueueBackend: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()
	assert.IsType(t, &queue.RedisQueue{}, q)
	assert.True(t, rc.Healthy(context.Background()))

	_, _, err = OpenQueue(config.App{QueueBackend: "kafka"})
	assert.Error(t, err)
}
