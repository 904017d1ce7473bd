package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	// PublicURL overrides the scheme/host used to build public object URLs
	// (e.g. a CDN or reverse proxy in front of MinIO).
	PublicURL string
}

// MediaConfig controls the ingestion pipeline limits and retry policy.
type MediaConfig struct {
	Bucket            string
	MaxSizeInMB       int
	AllowedMimeTypes  []string
	MaxFilenameLength int
	RetryAttempts     int
	RetryInitial      time.Duration
	RetryMax          time.Duration
}

// LockConfig selects the backend used to serialize uploads.
type LockConfig struct {
	Backend  string // "local" or "redis"
	RedisURL string
	TTL      time.Duration
}

// ThumbnailConfig controls video thumbnail derivation.
type ThumbnailConfig struct {
	Enabled    bool
	FFmpegPath string
	Timeout    time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	LogLevel  string
	Timezone  string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Media     MediaConfig
	Lock      LockConfig
	Thumbnail ThumbnailConfig
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"), // default only for non-sensitive value
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			Region:    getEnv("MINIO_REGION", "us-east-1"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		Media: MediaConfig{
			Bucket:      getEnv("MEDIA_BUCKET", "media"),
			MaxSizeInMB: getEnvInt("MEDIA_MAX_SIZE_MB", 50),
			AllowedMimeTypes: getEnvList("MEDIA_ALLOWED_MIME_TYPES", []string{
				"image/jpeg", "image/png", "image/gif", "image/webp",
				"application/pdf", "video/mp4", "video/quicktime",
			}),
			MaxFilenameLength: getEnvInt("MEDIA_MAX_FILENAME_LENGTH", 255),
			RetryAttempts:     getEnvInt("MEDIA_RETRY_ATTEMPTS", 3),
			RetryInitial:      getEnvDuration("MEDIA_RETRY_INITIAL", time.Second),
			RetryMax:          getEnvDuration("MEDIA_RETRY_MAX", 5*time.Second),
		},
		Lock: LockConfig{
			Backend:  getEnv("LOCK_BACKEND", "local"),
			RedisURL: getEnv("LOCK_REDIS_URL", ""),
			TTL:      getEnvDuration("LOCK_TTL", time.Minute),
		},
		Thumbnail: ThumbnailConfig{
			Enabled:    getEnvBool("THUMBNAIL_ENABLED", true),
			FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
			Timeout:    getEnvDuration("THUMBNAIL_TIMEOUT", 30*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
