package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// App holds the runtime configuration. Values come from defaults, then an
// optional TOML file named by CONFIG_FILE, then environment variables.
type App struct {
	Env      string `toml:"env" env:"APP_ENV"`
	HTTPPort string `toml:"http_port" env:"HTTP_PORT" validate:"required,numeric"`

	StoreDSN      string   `toml:"store_dsn" env:"STORE_DSN"`
	MongoDatabase string   `toml:"mongo_database"`
	SeedTeachers  []string `toml:"seed_teachers"`

	BlobBackend string `toml:"blob_backend" env:"BLOB_BACKEND" validate:"oneof=local minio cloudinary"`
	UploadDir   string `toml:"upload_dir" env:"UPLOAD_DIR" validate:"required_if=BlobBackend local"`

	S3Endpoint  string `toml:"s3_endpoint"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
	S3Bucket    string `toml:"s3_bucket"`

	CloudinaryCloudName string `toml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string `toml:"cloudinary_api_key"`
	CloudinaryAPISecret string `toml:"cloudinary_api_secret"`
	CloudinaryFolder    string `toml:"cloudinary_folder"`

	RedisAddr          string `toml:"redis_addr"`
	QueueBackend       string `toml:"queue_backend" env:"QUEUE_BACKEND" validate:"oneof=none memory redis"`
	CleanupMaxAttempts int    `toml:"cleanup_max_attempts" env:"CLEANUP_MAX_ATTEMPTS" validate:"min=1"`

	RateLimitPerMin int   `toml:"rate_limit_per_min" env:"RATE_LIMIT_PER_MIN" validate:"min=0"`
	MaxUploadBytes  int64 `toml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" validate:"min=0"`
}

func defaults() App {
	return App{
		Env:                "dev",
		HTTPPort:           "8081",
		StoreDSN:           "memory",
		MongoDatabase:      "school",
		BlobBackend:        "local",
		UploadDir:          "./static/uploads",
		CloudinaryFolder:   "student-pictures",
		RedisAddr:          "localhost:6379",
		QueueBackend:       "memory",
		CleanupMaxAttempts: 5,
		RateLimitPerMin:    120,
		MaxUploadBytes:     10 << 20,
	}
}

// Load returns application config. A missing .env file is not an error.
func Load() (App, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return App{}, err
		}
	}

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.StoreDSN = getEnv("STORE_DSN", cfg.StoreDSN)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.SeedTeachers = listEnv("SEED_TEACHERS", cfg.SeedTeachers)
	cfg.BlobBackend = getEnv("BLOB_BACKEND", cfg.BlobBackend)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKey = getEnv("S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.CloudinaryCloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.CloudinaryCloudName)
	cfg.CloudinaryAPIKey = getEnv("CLOUDINARY_API_KEY", cfg.CloudinaryAPIKey)
	cfg.CloudinaryAPISecret = getEnv("CLOUDINARY_API_SECRET", cfg.CloudinaryAPISecret)
	cfg.CloudinaryFolder = getEnv("CLOUDINARY_FOLDER", cfg.CloudinaryFolder)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.QueueBackend = getEnv("QUEUE_BACKEND", cfg.QueueBackend)
	cfg.CleanupMaxAttempts = intEnv("CLEANUP_MAX_ATTEMPTS", cfg.CleanupMaxAttempts)
	cfg.RateLimitPerMin = intEnv("RATE_LIMIT_PER_MIN", cfg.RateLimitPerMin)
	cfg.MaxUploadBytes = int64(intEnv("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))

	return cfg, cfg.validate()
}

func loadFile(path string, cfg *App) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func (a App) validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	err := v.Struct(a)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s=%v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s=%v fails %s", fe.Field(), fe.Value(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Production reports whether the service runs in a production environment.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
