package handlers

import (
	"fmt"
	"os"
	"strings"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/firmographics"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
	"github.com/karthiknish/profici-comp-sub000/internal/observability"
	"github.com/karthiknish/profici-comp-sub000/internal/persistence"
	"github.com/karthiknish/profici-comp-sub000/internal/pipeline"
)

// getDatabase connects to Postgres. It returns nil, nil when no connection
// string is configured and required is false.
func getDatabase(cfg *config.Config, required bool) (*persistence.PostgresDB, error) {
	dbConnStr := cfg.Database.ConnectionString
	if dbConnStr == "" {
		dbConnStr = os.Getenv("DATABASE_URL")
	}
	if dbConnStr == "" {
		if required {
			return nil, fmt.Errorf("database connection string not configured (set database.connection_string in config or DATABASE_URL env var)")
		}
		return nil, nil
	}

	db, err := persistence.NewPostgresDB(dbConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// buildPipeline wires every pipeline collaborator from configuration. The
// returned cleanup flushes analytics and closes the firmographics cache.
func buildPipeline(cfg *config.Config, db *persistence.PostgresDB) (*pipeline.Pipeline, func(), error) {
	firmo, closeFirmo, err := firmographics.NewSource(cfg.Firmographics)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure firmographics: %w", err)
	}

	analytics, err := observability.NewPostHogClient(cfg.Analytics)
	if err != nil {
		_ = closeFirmo()
		return nil, nil, fmt.Errorf("failed to configure analytics: %w", err)
	}

	if msg := firmographicsModeWarning(cfg); msg != "" {
		logger.Warn(msg, "cache_dir", cfg.Firmographics.CacheDir)
	}

	builder := pipeline.FromSettings(cfg).WithFirmographics(firmo)
	if db != nil {
		builder = builder.WithReportSaver(db.Reports())
	}
	if analytics.IsEnabled() {
		builder = builder.WithTracker(analytics)
	}

	p, err := builder.Build()
	if err != nil {
		_ = closeFirmo()
		return nil, nil, err
	}

	cleanup := func() {
		p.Wait()
		_ = analytics.Close()
		if err := closeFirmo(); err != nil {
			logger.Error("Failed to close firmographics cache", err)
		}
	}
	return p, cleanup, nil
}

// release drains the pipeline's background saves before the database they
// write to is closed.
func release(cleanup func(), closeDB func() error) {
	if cleanup != nil {
		cleanup()
	}
	if closeDB == nil {
		return
	}
	if err := closeDB(); err != nil {
		logger.Error("Failed to close database", err)
	}
}

// databaseCloser returns db.Close, or nil when no database is configured.
func databaseCloser(db *persistence.PostgresDB) func() error {
	if db == nil {
		return nil
	}
	return db.Close
}

// firmographicsModeWarning flags the local file cache in production, where
// records should come from the live enrichment API.
func firmographicsModeWarning(cfg *config.Config) string {
	mode := cfg.Firmographics.Mode
	if !cfg.App.IsProduction() || (mode != "" && !strings.EqualFold(mode, firmographics.ModeCache)) {
		return ""
	}
	return "Firmographics are read from the local file cache in production"
}
