package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shoraid/go-media-router/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("shutdown")
		}
	}()

	server := httpapi.New(httpapi.Config{
		Addr:            a.cfg.Addr(),
		MaxUploadBytes:  a.cfg.MaxUploadBytes,
		SignedURLTTL:    a.cfg.SignedURLTTL,
		ShutdownTimeout: a.cfg.ShutdownTimeout,
		Release:         a.cfg.Environment == "production",
		Ping:            a.ping,
	}, a.service, a.log)

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info().Msg("media router exited cleanly")
	return nil
}
