// Package config loads the router settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	mediarouter "github.com/shoraid/go-media-router"
)

// Slot holds the settings of one storage provider slot.
type Slot struct {
	Kind          string `env:"KIND" envDefault:"s3"` // s3, minio or local
	Endpoint      string `env:"ENDPOINT"`             // host, URL, or base directory for local
	Region        string `env:"REGION"`
	AccessKey     string `env:"ACCESS_KEY"`
	SecretKey     string `env:"SECRET_KEY"`
	Bucket        string `env:"BUCKET"`
	UseSSL        bool   `env:"USE_SSL" envDefault:"true"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	Visibility    string `env:"VISIBILITY" envDefault:"private"`
}

// Config holds the environment driven configuration of the router.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"media-router"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"MEDIA_HTTP_PORT" envDefault:"8080"`
	LogLevel        string        `env:"MEDIA_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"MEDIA_LOG_FORMAT" envDefault:"console"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Metadata store; in-memory when empty
	DatabaseDSN string `env:"MEDIA_DATABASE_DSN"`

	// Selector and orphan ledger
	RedisURL   string `env:"MEDIA_REDIS_URL"`
	Selector   string `env:"MEDIA_SELECTOR" envDefault:"clock"` // clock, round-robin, random, redis or storageN
	OrphansKey string `env:"MEDIA_ORPHANS_KEY"`

	// Upload pipeline
	UploadWorkers  int           `env:"MEDIA_UPLOAD_WORKERS" envDefault:"4"`
	MaxUploadBytes int64         `env:"MEDIA_MAX_UPLOAD_BYTES" envDefault:"104857600"`
	ImageMaxBytes  int64         `env:"MEDIA_IMAGE_MAX_BYTES" envDefault:"2097152"`
	ImageMaxWidth  int           `env:"MEDIA_IMAGE_MAX_WIDTH" envDefault:"1920"`
	ImageMaxHeight int           `env:"MEDIA_IMAGE_MAX_HEIGHT" envDefault:"1080"`
	SignedURLTTL   time.Duration `env:"MEDIA_SIGNED_URL_TTL" envDefault:"15m"`
	FFprobePath    string        `env:"MEDIA_FFPROBE_PATH" envDefault:"ffprobe"`
	FFmpegPath     string        `env:"MEDIA_FFMPEG_PATH" envDefault:"ffmpeg"`

	// Provider slots; slot 1 is the primary and must be complete
	Storage1 Slot `envPrefix:"MEDIA_STORAGE1_"`
	Storage2 Slot `envPrefix:"MEDIA_STORAGE2_"`
	Storage3 Slot `envPrefix:"MEDIA_STORAGE3_"`
	Storage4 Slot `envPrefix:"MEDIA_STORAGE4_"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if cfg.UploadWorkers <= 0 {
		cfg.UploadWorkers = 1
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
	}
	if !cfg.ProviderConfigs()[mediarouter.Primary].Available() {
		return nil, fmt.Errorf("%w: MEDIA_STORAGE1_* must configure the primary provider", mediarouter.ErrInvalidConfig)
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// ProviderConfigs maps every slot to its provider configuration.
func (c *Config) ProviderConfigs() map[mediarouter.ProviderID]mediarouter.ProviderConfig {
	return map[mediarouter.ProviderID]mediarouter.ProviderConfig{
		mediarouter.Storage1: c.Storage1.provider(),
		mediarouter.Storage2: c.Storage2.provider(),
		mediarouter.Storage3: c.Storage3.provider(),
		mediarouter.Storage4: c.Storage4.provider(),
	}
}

func (s Slot) provider() mediarouter.ProviderConfig {
	visibility := mediarouter.VisibilityPrivate
	if strings.EqualFold(strings.TrimSpace(s.Visibility), string(mediarouter.VisibilityPublic)) {
		visibility = mediarouter.VisibilityPublic
	}

	return mediarouter.ProviderConfig{
		Kind:          mediarouter.DriverKind(strings.ToLower(strings.TrimSpace(s.Kind))),
		Endpoint:      strings.TrimSpace(s.Endpoint),
		Region:        strings.TrimSpace(s.Region),
		AccessKey:     strings.TrimSpace(s.AccessKey),
		SecretKey:     strings.TrimSpace(s.SecretKey),
		Bucket:        strings.TrimSpace(s.Bucket),
		UseSSL:        s.UseSSL,
		PublicBaseURL: strings.TrimSpace(s.PublicBaseURL),
		Visibility:    visibility,
	}
}
