package cmd

import (
	"fmt"
	"time"

	"media-index/core/config"
	"media-index/core/database"
	"media-index/core/indexstore"
	"media-index/core/linked"
	"media-index/core/logclient"
	"media-index/core/reconcile"
	"media-index/core/storage"
	"media-index/feature/integrity"
	"media-index/feature/mediaindex"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// components are the long-lived services shared by every command.
type components struct {
	client  storage.Client
	db      *gorm.DB
	store   indexstore.Store
	indexer *mediaindex.Indexer
}

// wire connects the configured backends and assembles the indexer.
func wire(cfg *config.Config, logg *zap.Logger) (*components, error) {
	c := &components{}

	// The storage client connects lazily, so it is always created.
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		if cfg.Index.Backend == indexstore.BackendObject {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		logg.Warn("Optional storage client unavailable", zap.Error(err))
	} else {
		c.client = client
	}

	if cfg.Index.Backend == indexstore.BackendSQL {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database connection required for sql backend: %w", err)
		}
		c.db = db
		logg.Info("Connected to index database", zap.String("driver", cfg.Database.Driver))
	}

	store, err := indexstore.New(cfg.Index, c.client, cfg.Storage.Bucket, c.db)
	if err != nil {
		return nil, err
	}
	c.store = store

	source := logclient.NewClient(cfg.Logs, logg)
	resolver := linked.NewResolver(cfg.Linked, linked.NewHTTPFetcher(cfg.Linked), cfg.Reconcile.Folders(), logg)
	engine := reconcile.NewEngine(cfg.Reconcile, resolver, logg)
	ttl := time.Duration(cfg.Index.CacheTTLSeconds) * time.Second

	c.indexer = mediaindex.New(store, source, engine, ttl, cfg.Progress, logg)
	return c, nil
}

func (c *components) integrityService(cfg *config.Config, logg *zap.Logger) *integrity.Service {
	return integrity.NewService(c.client, cfg.Storage.Bucket, cfg.Index.Prefix, c.store, c.db, logg)
}
