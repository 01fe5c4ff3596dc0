package main

import (
	"context"
	"fmt"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/db"
	"github.com/jonathan/cv-builder/internal/server"
	"github.com/jonathan/cv-builder/internal/sqlitedb"
	"go.uber.org/zap"
)

// loadConfig reads the config file named by --config and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBackend connects to the configured store and brings its schema up to date.
// The returned func closes it.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (server.Backend, func(), error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		store, err := sqlitedb.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close sqlite store", zap.Error(err))
			}
		}, nil

	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		applied, err := database.Migrate(ctx)
		if err != nil {
			database.Close()
			return nil, nil, err
		}
		if len(applied) > 0 {
			logger.Info("applied migrations", zap.Strings("versions", applied))
		}
		return database, database.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
}
