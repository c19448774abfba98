package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/groundwater-client/internal/adapter/api"
	httpadapter "github.com/couchcryptid/groundwater-client/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/groundwater-client/internal/adapter/kafka"
	"github.com/couchcryptid/groundwater-client/internal/config"
	"github.com/couchcryptid/groundwater-client/internal/credential"
	"github.com/couchcryptid/groundwater-client/internal/groundwater"
	"github.com/couchcryptid/groundwater-client/internal/observability"
	"github.com/couchcryptid/groundwater-client/internal/relay"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	flag.Parse()

	base := config.Defaults()
	base.LogFormat = "json"
	cfg, err := config.Load(*configPath, base)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	store, err := credential.Open(cfg.CredentialBackend, cfg.CredentialPath)
	if err != nil {
		logger.Error("failed to open credential store", "error", err)
		os.Exit(1)
	}
	if c, ok := store.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	if access, err := credential.AccessToken(store); err != nil || access == "" {
		logger.Error("no stored credential, run gwctl login first", "backend", cfg.CredentialBackend, "path", cfg.CredentialPath, "error", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.APIURL, store, logger, metrics)
	svc := groundwater.NewService(client, store, logger)
	writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)

	states := groundwater.NewCachedTaxonomy(svc, cfg.TaxonomyCacheSize, metrics)

	r := relay.New(svc, writer, logger, metrics, relay.Config{
		Interval:  cfg.AlertPollInterval,
		Severity:  cfg.AlertSeverity,
		States:    cfg.AlertStates,
		DedupSize: cfg.AlertDedupSize,
	}, relay.WithStateLister(states))

	srv := httpadapter.NewServer(cfg.HTTPAddr, r, prometheus.DefaultGatherer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			logger.Error("relay error", "error", err)
		}
	}()

	logger.Info("alert relay started", "api_url", client.BaseURL(), "topic", cfg.KafkaAlertTopic, "interval", cfg.AlertPollInterval)
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("relay did not stop before shutdown timeout")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
