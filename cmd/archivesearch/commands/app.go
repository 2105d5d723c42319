package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/archivesearch/internal/config"
	"github.com/dshills/archivesearch/internal/embedcache"
	"github.com/dshills/archivesearch/internal/embedder"
	"github.com/dshills/archivesearch/internal/searcher"
	"github.com/dshills/archivesearch/internal/storage"
)

// app holds the components a command runs against
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *storage.SQLStorage
	capability embedder.Capability
	cache      *embedcache.Cache
	searcher   *searcher.Searcher
}

// loadConfig reads configuration using the persistent flags of cmd
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	file, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	level, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(config.Options{File: file, EnvFiles: envFiles})
	if err != nil {
		return nil, nil, err
	}
	if level != "" {
		cfg.Log.Level = level
	}

	// stdout is reserved for command output and the MCP protocol
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStorage connects to the configured archive backend
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.SQLStorage, error) {
	switch cfg.Database.Driver {
	case storage.DialectPostgres:
		return storage.NewPostgresStorage(ctx, cfg.Postgres(), logger)
	case storage.DialectSQLite:
		logger.Debug("opening sqlite archive",
			"path", cfg.Database.Path,
			"build_mode", storage.BuildMode,
			"driver", storage.DriverName)
		return storage.NewSQLiteStorage(cfg.Database.Path, logger)
	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrUnsupportedDialect, cfg.Database.Driver)
	}
}

// openApp wires storage, the embedding provider, the cache and the searcher
func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	capability, err := embedder.New(ctx, cfg.Embedder(), logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	cache, err := embedcache.New(store, capability, cfg.EmbedCache(), logger)
	if err != nil {
		_ = capability.Close()
		_ = store.Close()
		return nil, fmt.Errorf("embedding cache: %w", err)
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		capability: capability,
		cache:      cache,
		searcher:   searcher.NewSearcher(store, cache, cfg.Searcher(), logger),
	}, nil
}

// Close stops the cache toucher and releases the provider and database
func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.capability.Close(), a.store.Close())
}
