package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ServiceConfig contains the HTTP service settings read from the environment.
type ServiceConfig struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"5000"`

	// APISecretKey guards the JSON API via the X-API-KEY header. Empty disables the check.
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	MaxUploadMB         int `envconfig:"MAX_UPLOAD_MB" default:"32"`
	FetchTimeoutSeconds int `envconfig:"FETCH_TIMEOUT_SECONDS" default:"30"`

	// StoreBackend selects where API results go: "local" or "s3".
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"local"`
	DownloadDir   string `envconfig:"DOWNLOAD_DIR" default:"./static/downloads"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:5000"`

	// Local download purge
	CleanupSchedule        string `envconfig:"CLEANUP_SCHEDULE" default:"@hourly"`
	DownloadRetentionHours int    `envconfig:"DOWNLOAD_RETENTION_HOURS" default:"24"`

	S3Endpoint       string `envconfig:"S3_ENDPOINT"`
	S3Region         string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket         string `envconfig:"S3_BUCKET"`
	S3AccessKey      string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey      string `envconfig:"S3_SECRET_KEY"`
	S3Prefix         string `envconfig:"S3_PREFIX" default:"converted/"`
	S3PresignMinutes int    `envconfig:"S3_PRESIGN_MINUTES" default:"60"`
}

// LoadService loads the service configuration from the environment, reading a
// .env file first when one exists.
func LoadService() (*ServiceConfig, error) {
	_ = godotenv.Load()
	var c ServiceConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("failed to load service config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks settings that envconfig defaults cannot enforce.
func (c *ServiceConfig) Validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case "local":
	case "s3":
		if c.S3Bucket == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			return fmt.Errorf("STORE_BACKEND=s3 requires S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (expected local or s3)", c.StoreBackend)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// FetchTimeout returns the per-request download timeout of the JSON API.
func (c *ServiceConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// DownloadRetention returns how long local downloads are kept.
func (c *ServiceConfig) DownloadRetention() time.Duration {
	return time.Duration(c.DownloadRetentionHours) * time.Hour
}

// PresignExpiry returns the lifetime of S3 download links.
func (c *ServiceConfig) PresignExpiry() time.Duration {
	return time.Duration(c.S3PresignMinutes) * time.Minute
}
