package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portmonitor/internal/config"
	"portmonitor/internal/httpapi"
	"portmonitor/internal/metrics"
	"portmonitor/internal/ports"
	"portmonitor/internal/provisioner"
	"portmonitor/internal/status"
)

func main() {
	dotenvErr := config.LoadDotEnv(envOr("DOTENV_FILE", ".env"))

	cfg, cfgErr := config.Load(os.Getenv("CONFIG_FILE"))
	logger := httpapi.NewLogger(os.Stdout, cfg.LogLevel)
	if dotenvErr != nil {
		logger.Fatal().Err(dotenvErr).Msg("failed to load .env file")
	}
	if cfgErr != nil {
		logger.Fatal().Err(cfgErr).Msg("invalid configuration")
	}

	palette, err := cfg.Palette()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid color palette")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client := provisioner.New(logger, provisioner.Options{
		URL:     cfg.Provisioner.URL,
		Timeout: cfg.Provisioner.Timeout,
	}, m)
	aggregator := ports.New(logger, status.NewClassifier(palette), ports.Options{
		ExpectedPorts: cfg.ExpectedPorts,
	})

	h := httpapi.NewHandler(logger, client, aggregator, palette, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("provisioner_url", client.URL()).
			Dur("provisioner_timeout", cfg.Provisioner.Timeout).
			Msg("portmonitor listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
