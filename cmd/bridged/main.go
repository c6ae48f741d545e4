package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storebridge/api"
	"github.com/angelmondragon/storebridge/api/channel"
	webhookcontrollers "github.com/angelmondragon/storebridge/api/controllers/webhooks"
	"github.com/angelmondragon/storebridge/api/routes"
	"github.com/angelmondragon/storebridge/internal/appstore"
	"github.com/angelmondragon/storebridge/internal/bridge"
	"github.com/angelmondragon/storebridge/internal/localstore"
	"github.com/angelmondragon/storebridge/internal/relay"
	"github.com/angelmondragon/storebridge/pkg/config"
	"github.com/angelmondragon/storebridge/pkg/env"
	"github.com/angelmondragon/storebridge/pkg/logger"
	"github.com/angelmondragon/storebridge/pkg/metrics"
	"github.com/angelmondragon/storebridge/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bridged"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bridged",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := localstore.LoadCatalog(cfg.Store.CatalogPath)
	if err != nil {
		logg.Error(ctx, "failed to load catalog", err)
		os.Exit(1)
	}
	store := localstore.New(catalog, logg)
	defer store.Close()

	registry := prometheus.NewRegistry()
	bridgeMetrics := metrics.NewBridgeMetrics(registry)

	hub := channel.NewHub(cfg.Channel, logg)
	defer hub.Close()

	var sink bridge.EventSink = hub
	if cfg.PubSub.Enabled {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		sink = relay.New(hub, relay.NewTopicPublisher(psClient.UpdatesPublisher()), logg)
	}

	b, err := bridge.New(bridge.Params{
		Store:   store,
		Sink:    sink,
		Logger:  logg,
		Metrics: bridgeMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to start bridge", err)
		os.Exit(1)
	}
	defer b.Close()

	var decoder *appstore.Decoder
	var ingestor webhookcontrollers.Ingestor
	if cfg.AppStore.WebhookEnabled {
		decoder, err = appstore.NewDecoder(cfg.AppStore, logg)
		if err != nil {
			logg.Error(ctx, "failed to build appstore decoder", err)
			os.Exit(1)
		}
		ingestor = store
	}

	router := routes.NewRouter(routes.Params{
		Config:     cfg,
		Logger:     logg,
		Hub:        hub,
		Dispatcher: b,
		Decoder:    decoder,
		Ingestor:   ingestor,
		Registry:   registry,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting bridge server")

	server := api.NewServer(addr, router, logg)
	if err := server.Run(ctx); err != nil {
		logg.Error(runCtx, "bridge server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "bridge server stopped")
}
