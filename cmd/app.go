package cmd

import (
	"fmt"

	"country-feed-sync/core/config"
	"country-feed-sync/core/database"
	"country-feed-sync/core/logger"
	"country-feed-sync/core/storage"
	"country-feed-sync/feature/catalog"
	"country-feed-sync/feature/feed"
	"country-feed-sync/feature/mapping"
	"country-feed-sync/feature/projection"
	"country-feed-sync/feature/shopify"
	"country-feed-sync/feature/shopify/bulk"
	"country-feed-sync/feature/state"
	"country-feed-sync/feature/syncer"

	"go.uber.org/zap"
)

// app bundles the wired components a command operates on.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	store        *state.Store
	mapper       *mapping.Mapper
	writer       *feed.Writer
	uploader     *feed.Uploader
	orchestrator *syncer.Orchestrator
}

// buildApp loads configuration and wires the full component stack. The
// uploader stays nil when storage is disabled.
func buildApp() (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to state database: %w", err)
	}

	store, err := state.NewStore(db, log)
	if err != nil {
		return nil, err
	}

	client := shopify.NewClient(cfg.Shopify, log)
	runner := bulk.NewRunner(client, cfg.Shopify, log)
	mapper := mapping.NewMapper(client, runner, store, cfg.Mapping, log)
	writer := feed.NewWriter(cfg.Feed, log)

	var uploader *feed.Uploader
	if cfg.Storage.Enabled {
		storageClient, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		uploader = feed.NewUploader(storageClient, cfg.Storage, cfg.Feed, log)
	}

	// A nil *feed.Uploader must stay a nil interface inside the orchestrator.
	var target syncer.ObjectUploader
	if uploader != nil {
		target = uploader
	}

	orchestrator := syncer.New(runner, mapper, catalog.NewBuilder(log),
		projection.NewProjector(log), store, writer, target, cfg.Sync, log)

	return &app{
		cfg:          cfg,
		logger:       log,
		store:        store,
		mapper:       mapper,
		writer:       writer,
		uploader:     uploader,
		orchestrator: orchestrator,
	}, nil
}
