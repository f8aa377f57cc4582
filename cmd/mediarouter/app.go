package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	mediarouter "github.com/shoraid/go-media-router"
	"github.com/shoraid/go-media-router/config"
	"github.com/shoraid/go-media-router/drivers"
	"github.com/shoraid/go-media-router/logger"
	"github.com/shoraid/go-media-router/observability"
	redisorphans "github.com/shoraid/go-media-router/orphans/redis"
	redisselector "github.com/shoraid/go-media-router/selector/redis"
	"github.com/shoraid/go-media-router/store/memory"
	"github.com/shoraid/go-media-router/store/postgres"
	"github.com/shoraid/go-media-router/transform"
)

// app holds the wired service and everything that must be closed on exit.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	service *mediarouter.Service
	ledger  *redisorphans.Ledger // nil without Redis
	ping    func(context.Context) error
	closers []func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	shutdownTelemetry, err := observability.Setup(ctx, observability.Config{
		ServiceName:  cfg.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("initialize observability: %w", err)
	}
	a.closers = append(a.closers, shutdownTelemetry)

	registry, err := mediarouter.NewRegistry(cfg.ProviderConfigs(), drivers.New)
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	var client *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, a.fail(ctx, fmt.Errorf("%w: MEDIA_REDIS_URL: %v", mediarouter.ErrInvalidConfig, err))
		}
		client = redis.NewClient(opts)
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		a.ledger = redisorphans.New(client, cfg.OrphansKey, log)
	}

	selector, err := selectorFor(cfg.Selector, client)
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	transformer := transform.New(transform.FFmpegProber{
		FFprobePath: cfg.FFprobePath,
		FFmpegPath:  cfg.FFmpegPath,
	}, transform.Options{
		ImageMaxBytes: int(cfg.ImageMaxBytes),
		MaxWidth:      cfg.ImageMaxWidth,
		MaxHeight:     cfg.ImageMaxHeight,
	}).WithLogger(log)

	opts := []mediarouter.Option{
		mediarouter.WithSelector(selector),
		mediarouter.WithLogger(log),
	}
	if a.ledger != nil {
		opts = append(opts, mediarouter.WithOrphanReporter(a.ledger))
	}

	a.service, err = mediarouter.NewService(registry, store, transformer, opts...)
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	log.Info().
		Strs("secondaries", providerNames(registry.AvailableSecondaries())).
		Str("selector", cfg.Selector).
		Bool("orphan_ledger", a.ledger != nil).
		Msg("media router ready")

	return a, nil
}

func (a *app) openStore(ctx context.Context) (mediarouter.MetadataStore, error) {
	if a.cfg.DatabaseDSN == "" {
		a.log.Warn().Msg("MEDIA_DATABASE_DSN is empty, records are kept in memory")
		return memory.New(), nil
	}

	store, err := postgres.Open(ctx, a.cfg.DatabaseDSN, a.log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	a.ping = store.Ping
	return store, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) fail(ctx context.Context, err error) error {
	if closeErr := a.Close(ctx); closeErr != nil {
		a.log.Error().Err(closeErr).Msg("release resources")
	}
	return err
}

// selectorFor maps MEDIA_SELECTOR to a ProviderSelector. "storageN" or "N"
// pins uploads to one slot.
func selectorFor(name string, client *redis.Client) (mediarouter.ProviderSelector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "clock":
		return mediarouter.ClockSelector{}, nil
	case "round-robin":
		return &mediarouter.RoundRobinSelector{}, nil
	case "random":
		return mediarouter.RandomSelector{}, nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("%w: MEDIA_SELECTOR=redis needs MEDIA_REDIS_URL", mediarouter.ErrInvalidConfig)
		}
		return redisselector.New(client, ""), nil
	}

	id, err := mediarouter.ParseProviderID(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown selector %q", mediarouter.ErrInvalidConfig, name)
	}
	return mediarouter.FixedSelector(id), nil
}

func providerNames(ids []mediarouter.ProviderID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.String())
	}
	return names
}
