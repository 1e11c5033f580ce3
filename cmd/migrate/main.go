package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"booknotes/internal/config"
	"booknotes/internal/logger"
	"booknotes/internal/platform/postgres"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	config.LoadEnvFiles()
	log := logger.New(logger.Config{Format: logger.FormatText, Level: slog.LevelInfo})

	if err := run(context.Background(), *command, *name, log); err != nil {
		log.Error("migrate failed", "command", *command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command, name string, log *slog.Logger) error {
	fsys, dir := migrationsSource()

	if command == "create" {
		if name == "" {
			return fmt.Errorf("name is required for 'create' command")
		}
		if fsys != nil {
			dir = "db/" + dir
		}
		if err := goose.Create(nil, dir, name, "sql"); err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		log.Info("migration created", "name", name, "dir", dir)
		return nil
	}

	dsn := databaseDSN()
	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", config.RedactDSN(dsn), err)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations applied successfully")
	case "down":
		if err := goose.DownContext(ctx, sqlDB, dir); err != nil {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		log.Info("migrations rolled back successfully")
	case "status":
		if err := goose.StatusContext(ctx, sqlDB, dir); err != nil {
			return fmt.Errorf("check migration status: %w", err)
		}
	default:
		return fmt.Errorf("unknown command: %s. Use: up, down, status, create", command)
	}
	return nil
}
