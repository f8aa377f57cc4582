// Package httpapi exposes the media router over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	mediarouter "github.com/shoraid/go-media-router"
)

// MediaService is the part of mediarouter.Service the handlers use.
type MediaService interface {
	UploadMedia(ctx context.Context, in mediarouter.UploadInput, progress mediarouter.ProgressFunc) (*mediarouter.MediaRecord, error)
	GetMedia(ctx context.Context, id string) (*mediarouter.MediaRecord, error)
	ListMedia(ctx context.Context, ownerID string, limit, offset int) ([]mediarouter.MediaRecord, error)
	GetMediaURL(ctx context.Context, objectKey string, providerID mediarouter.ProviderID) (string, error)
	GetSignedMediaURL(ctx context.Context, objectKey string, providerID mediarouter.ProviderID, expiry time.Duration) (string, error)
	FetchObject(ctx context.Context, record *mediarouter.MediaRecord) ([]byte, error)
	UpdateDetails(ctx context.Context, id, title, description string) (*mediarouter.MediaRecord, error)
	DeleteMedia(ctx context.Context, in mediarouter.DeleteInput) bool
	StorageUsage(ctx context.Context) ([]mediarouter.ProviderUsage, error)
}

var _ MediaService = (*mediarouter.Service)(nil)

// Config holds the HTTP settings.
type Config struct {
	Addr            string
	MaxUploadBytes  int64
	SignedURLTTL    time.Duration
	ShutdownTimeout time.Duration
	Release         bool

	// Ping, when set, backs /healthz (the metadata store connection).
	Ping func(ctx context.Context) error
}

// Server wraps the gin engine with graceful shutdown helpers.
type Server struct {
	cfg    Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg Config, service MediaService, log zerolog.Logger) *Server {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	log = log.With().Str("component", "http").Logger()

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	engine.GET("/healthz", func(c *gin.Context) {
		if cfg.Ping != nil {
			if err := cfg.Ping(c.Request.Context()); err != nil {
				log.Error().Err(err).Msg("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &mediaHandler{cfg: cfg, service: service, log: log}
	h.register(engine.Group("/v1"))

	return &Server{cfg: cfg, engine: engine, log: log}
}

// Handler returns the root handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and shuts down gracefully when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("media router HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
