package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-alert-card/internal/adapter/file"
	"github.com/couchcryptid/crisis-alert-card/internal/adapter/homeassistant"
	httpadapter "github.com/couchcryptid/crisis-alert-card/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crisis-alert-card/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-alert-card/internal/adapter/mqtt"
	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/config"
	"github.com/couchcryptid/crisis-alert-card/internal/observability"
	"github.com/couchcryptid/crisis-alert-card/internal/pipeline"
	"github.com/couchcryptid/crisis-alert-card/internal/render"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the live card server (configured from the environment)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry := newRegistry()
	cardCfg, err := loadCardConfig(cfg.CardConfigPath, registry)
	if err != nil {
		logger.Error("failed to load card config", "path", cfg.CardConfigPath, "error", err)
		os.Exit(1)
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := httpadapter.NewHub(logger, metrics)
	sinks := []pipeline.SignalSink{hub}
	var closers []namedCloser

	var hass *homeassistant.Client
	if cfg.HassToken != "" {
		hass = homeassistant.NewClient(cfg.HassURL, cfg.HassToken, cfg.HassTimeout, logger)
		sinks = append(sinks, hass)
	} else {
		logger.Info("HASS_TOKEN not set, call-service actions are disabled")
	}

	source, err := newSource(ctx, cfg, cardCfg.Entity, hass, logger)
	if err != nil {
		logger.Error("failed to start alert source", "source", cfg.AlertSource, "error", err)
		os.Exit(1)
	}
	closers = append(closers, namedCloser{"alert source", source})

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		closers = append(closers, namedCloser{"kafka writer", writer})
		logger.Info("signal audit enabled", "topic", cfg.KafkaSignalTopic)
	}

	c := card.New(cardCfg, card.WithLocation(cfg.DisplayLocation))
	p := pipeline.New(source, c, renderer, hub, logger, metrics, pipeline.WithSinks(sinks...))

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Card:     p,
		Hub:      hub,
		Registry: registry,
		Renderer: renderer,
		Entity:   cardCfg.Entity,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start card pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	go reloadOnHangup(ctx, cfg.CardConfigPath, registry, p, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, cl := range closers {
		if err := cl.Close(); err != nil {
			logger.Error(cl.name+" close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

type namedCloser struct {
	name string
	io.Closer
}

type closableSource interface {
	pipeline.StateSource
	io.Closer
}

func newSource(ctx context.Context, cfg *config.Config, entity string, hass *homeassistant.Client, logger *slog.Logger) (closableSource, error) {
	switch cfg.AlertSource {
	case config.SourceWebsocket:
		return homeassistant.NewSubscriber(cfg.HassURL, cfg.HassToken, entity, cfg.HassLanguage, hass, logger)
	case config.SourceREST:
		return homeassistant.NewPoller(hass, entity, cfg.HassLanguage, cfg.HassPollInterval, nil), nil
	case config.SourceMQTT:
		src, err := mqtt.NewSource(mqtt.Options{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Base:     cfg.MQTTStatestreamBase,
			EntityID: entity,
			Language: cfg.HassLanguage,
			Settle:   mqtt.DefaultSettle,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := src.Connect(ctx); err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceFile:
		return file.NewSource(cfg.AlertFixture, entity, cfg.HassLanguage, nil), nil
	default:
		return nil, fmt.Errorf("unknown alert source %q", cfg.AlertSource)
	}
}

// reloadOnHangup re-reads the card config on SIGHUP. An invalid file is
// logged and the running config is kept.
func reloadOnHangup(ctx context.Context, path string, registry *card.Registry, p *pipeline.Pipeline, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		cfg, err := loadCardConfig(path, registry)
		if err != nil {
			logger.Error("card config reload failed, keeping current config", "path", path, "error", err)
			continue
		}
		if err := p.SetConfig(ctx, cfg); err != nil {
			logger.Error("render after config reload failed", "error", err)
			continue
		}
		logger.Info("card config reloaded", "path", path, "entity", cfg.Entity)
	}
}
