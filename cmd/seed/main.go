package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"booknotes/internal/book"
	"booknotes/internal/config"
	"booknotes/internal/logger"
	"booknotes/internal/platform/postgres"
)

var tagPool = []string{
	"fiction", "history", "science", "programming", "philosophy",
	"biography", "classic", "sci-fi", "fantasy", "business",
}

func main() {
	var (
		count = flag.Int("count", 200, "Number of books to generate")
		seed  = flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	)
	flag.Parse()

	config.LoadEnvFiles()
	log := logger.New(logger.Config{Format: logger.FormatText, Level: slog.LevelInfo})

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, *count, *seed, log); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

type importer interface {
	Import(ctx context.Context, books []book.Book) error
	List(ctx context.Context) ([]book.Book, error)
}

func run(ctx context.Context, cfg config.Config, count int, seed int64, log *slog.Logger) error {
	var repo importer
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", config.RedactDSN(cfg.DBDSN), err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		repo = book.NewPostgresRepo(pool, cfg.DBTimeout)
	case config.DriverSQLite:
		sqliteRepo, err := book.OpenSQLite(ctx, cfg.SQLitePath, cfg.DBTimeout)
		if err != nil {
			return err
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	default:
		return fmt.Errorf("seeding needs a persistent store; set DB_DRIVER to %s or %s", config.DriverPostgres, config.DriverSQLite)
	}

	existing, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list existing books: %w", err)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Info("generating books", "count", count, "seed", seed)
	books := generateBooks(gofakeit.New(seed), book.NextID(existing), count, time.Now())

	if err := repo.Import(ctx, books); err != nil {
		return fmt.Errorf("import books: %w", err)
	}

	total, err := repo.List(ctx)
	if err != nil {
		return err
	}
	log.Info("seed complete", "inserted", len(books), "total", len(total))
	return nil
}

// generateBooks builds count books with consecutive ids starting at firstID.
// Dates fall within the year before today.
func generateBooks(f *gofakeit.Faker, firstID, count int, today time.Time) []book.Book {
	books := make([]book.Book, 0, count)
	for i := range count {
		info := f.Book()
		added := f.DateRange(today.AddDate(-1, 0, 0), today)

		var tags []string
		for range f.Number(0, 3) {
			tags = book.AddTag(tags, f.RandomString(tagPool))
		}
		tags = book.AddTag(tags, info.Genre)

		status := book.Statuses[f.Number(0, len(book.Statuses)-1)]
		b := book.Book{
			ID:          firstID + i,
			Title:       info.Title,
			Author:      info.Author,
			CoverURL:    book.DefaultCoverURL,
			Tags:        book.NormalizeTags(tags),
			Status:      status,
			Description: f.SentenceSimple(),
			DateAdded:   book.Today(added),
			NotesCount:  f.Number(0, 12),
		}
		if status == book.StatusFinished {
			b.DateFinished = book.Today(f.DateRange(added, today))
			rating := f.Number(1, 5)
			b.Rating = &rating
		}
		books = append(books, b)
	}
	return books
}
