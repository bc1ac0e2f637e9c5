package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP listener and upload limits.
type ServerConfig struct {
	Port          string
	MaxUploadMB   int
	ShutdownGrace time.Duration
}

// ThumbnailConfig defines preview rendering and where images are kept.
type ThumbnailConfig struct {
	Scale       float64
	JPEGQuality int
	Grayscale   bool
	Store       string // "memory"|"redis"
	TTL         time.Duration
}

// ExportConfig defines export defaults and delivery targets.
type ExportConfig struct {
	Mode             string // "archive"|"individual"
	Timeout          time.Duration
	DeliveryAttempts int
	RetryDelay       time.Duration
	Delivery         string // "local"|"s3"
	OutputDir        string
	StatusStore      string // "memory"|"redis"
}

// S3Config defines the bucket exports are uploaded to.
type S3Config struct {
	Bucket string
	Prefix string
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Server    ServerConfig
	Thumbnail ThumbnailConfig
	Export    ExportConfig
	S3        S3Config
	RedisURL  string
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pagedeck.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pagedeck",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:          getEnv("PORT", "8080"),
		MaxUploadMB:   parseInt(getEnv("MAX_UPLOAD_MB", "200"), 200),
		ShutdownGrace: parseDuration(getEnv("SHUTDOWN_GRACE", "15s"), 15*time.Second),
	}

	cfg.Thumbnail = ThumbnailConfig{
		Scale:       parseFloat(getEnv("THUMB_SCALE", "0.2"), 0.2),
		JPEGQuality: parseInt(getEnv("THUMB_JPEG_QUALITY", "70"), 70),
		Grayscale:   parseBool(getEnv("THUMB_GRAYSCALE", "false")),
		Store:       strings.ToLower(getEnv("THUMB_STORE", "memory")),
		TTL:         parseDuration(getEnv("THUMB_TTL", "24h"), 24*time.Hour),
	}
	if cfg.Thumbnail.Scale <= 0 || cfg.Thumbnail.Scale > 4 {
		cfg.Thumbnail.Scale = 0.2
	}
	if cfg.Thumbnail.JPEGQuality < 1 || cfg.Thumbnail.JPEGQuality > 100 {
		cfg.Thumbnail.JPEGQuality = 70
	}

	cfg.Export = ExportConfig{
		Mode:             strings.ToLower(getEnv("EXPORT_MODE", "archive")),
		Timeout:          parseDuration(getEnv("EXPORT_TIMEOUT", "5m"), 5*time.Minute),
		DeliveryAttempts: parseInt(getEnv("DELIVERY_ATTEMPTS", "3"), 3),
		RetryDelay:       parseDuration(getEnv("DELIVERY_RETRY_DELAY", "500ms"), 500*time.Millisecond),
		Delivery:         strings.ToLower(getEnv("DELIVERY", "local")),
		OutputDir:        getEnv("OUTPUT_DIR", "output"),
		StatusStore:      strings.ToLower(getEnv("STATUS_STORE", "memory")),
	}
	if cfg.Export.DeliveryAttempts < 1 {
		cfg.Export.DeliveryAttempts = 1
	}

	cfg.S3 = S3Config{
		Bucket: getEnv("AWS_S3_BUCKET", ""),
		Prefix: getEnv("S3_PREFIX", "exports"),
	}

	cfg.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379")

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
