package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booknotes/internal/book"
	"booknotes/internal/config"
	"booknotes/internal/logger"
	"booknotes/internal/platform/booksapi"
	"booknotes/internal/platform/postgres"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Environment: string(cfg.Environment),
		Level:       cfg.LogLevel,
		AddSource:   cfg.IsDevelopment(),
	})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := []book.Option{book.WithLogger(log)}
	if cfg.MirrorAPIURL != "" {
		mirror := booksapi.NewClient(cfg.MirrorAPIURL,
			booksapi.WithHTTPClient(&http.Client{Timeout: cfg.MirrorTimeout}),
		)
		opts = append(opts, book.WithMirror(mirror, cfg.MirrorTimeout))
		log.Info("mirroring new books", "url", cfg.MirrorAPIURL)
	}
	service := book.NewService(repo, opts...)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newRouter(ctx, cfg, service, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr, "driver", cfg.DBDriver, "environment", cfg.Environment)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	service.Wait()
	return nil
}

func openRepository(ctx context.Context, cfg config.Config, log *slog.Logger) (book.Repository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open database (%s): %w", config.RedactDSN(cfg.DBDSN), err)
		}
		log.Info("database connection OK", "dsn", config.RedactDSN(cfg.DBDSN))
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied")
		}
		return book.NewPostgresRepo(pool, cfg.DBTimeout), pool.Close, nil

	case config.DriverSQLite:
		repo, err := book.OpenSQLite(ctx, cfg.SQLitePath, cfg.DBTimeout)
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite database opened", "path", cfg.SQLitePath)
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Warn("close sqlite", "error", err)
			}
		}, nil

	default:
		log.Warn("using in-memory store; books are lost on restart")
		return book.NewMemoryStore(nil), func() {}, nil
	}
}
