package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ecofashion/ecofashion-backend/pkg/config"
	"github.com/ecofashion/ecofashion-backend/pkg/db"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/migrate"
)

func main() {
	var (
		cmd     = flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
		dir     = flag.String("dir", migrate.DefaultDir, "directory holding SQL migrations")
		name    = flag.String("name", "", "migration name (required for create)")
		version = flag.String("version", "", "target version (required for version)")
	)
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithField(context.Background(), "cmd", *cmd)

	// create and validate only touch the filesystem; no database needed.
	switch *cmd {
	case "create":
		requireResource(logg, ctx, "name", *name)
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			logg.Error(ctx, "failed to create migration", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			logg.Error(ctx, "migration directory is invalid", err)
			os.Exit(1)
		}
		logg.Info(ctx, "migration directory is valid")
		return
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := client.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			logg.Error(ctx, fmt.Sprintf("goose %s failed", *cmd), err)
			os.Exit(1)
		}
	case "version":
		requireResource(logg, ctx, "version", *version)
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			logg.Error(ctx, "goose migrate-to-version failed", err)
			os.Exit(1)
		}
	default:
		logg.Error(ctx, "unknown migration command", fmt.Errorf("cmd %q is not supported", *cmd))
		os.Exit(1)
	}

	logg.Info(ctx, "migration command completed")
}

func requireResource(logg *logger.Logger, ctx context.Context, key, value string) {
	if value != "" {
		return
	}
	logg.Error(ctx, "missing required flag", fmt.Errorf("-%s is required", key))
	os.Exit(1)
}
