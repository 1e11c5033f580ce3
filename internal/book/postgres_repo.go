package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgBookColumns = `id, title, author, cover_url, tags, status::text, rating,
	COALESCE(description, ''), date_added::text, COALESCE(date_finished::text, ''), notes_count`

// PostgresRepo stores books in the books table created by db/migrations.
type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
	now     func() time.Time
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout, now: time.Now}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}

// Add locks the table so that concurrent adds cannot both observe the same
// maximum id.
func (r *PostgresRepo) Add(ctx context.Context, draft Draft) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var b Book
	err := pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(timeoutCtx, `LOCK TABLE books IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		var nextID int
		if err := tx.QueryRow(timeoutCtx, `SELECT COALESCE(MAX(id), 0) + 1 FROM books`).Scan(&nextID); err != nil {
			return err
		}
		b = NewBook(nextID, draft, Today(r.now()))
		return r.insert(timeoutCtx, tx, b)
	})
	if err != nil {
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Update(ctx context.Context, patch Patch) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updated Book
	err := pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(timeoutCtx, `SELECT `+pgBookColumns+` FROM books WHERE id = $1 FOR UPDATE`, patch.ID)
		current, err := scanBook(row)
		if err != nil {
			return err
		}
		updated = ApplyPatch(current, patch, Today(r.now()))

		const updateSQL = `
			UPDATE books
			SET title = $2, author = $3, cover_url = $4, tags = $5, status = $6::book_status,
			    rating = $7, description = NULLIF($8, ''), date_finished = NULLIF($9, '')::date
			WHERE id = $1
		`
		_, err = tx.Exec(timeoutCtx, updateSQL,
			updated.ID, updated.Title, updated.Author, updated.CoverURL, updated.Tags,
			string(updated.Status), updated.Rating, updated.Description, updated.DateFinished,
		)
		return err
	})
	if err != nil {
		return Book{}, err
	}
	return updated, nil
}

func (r *PostgresRepo) Remove(ctx context.Context, id int) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	commandTag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id int) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(timeoutCtx, `SELECT `+pgBookColumns+` FROM books WHERE id = $1`, id)
	return scanBook(row)
}

func (r *PostgresRepo) List(ctx context.Context) ([]Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, `SELECT `+pgBookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Import inserts books with their existing ids and dates. Used by cmd/seed.
func (r *PostgresRepo) Import(ctx context.Context, books []Book) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		for _, b := range books {
			if err := r.insert(timeoutCtx, tx, b); err != nil {
				return fmt.Errorf("import book %d: %w", b.ID, err)
			}
		}
		return nil
	})
}

func (r *PostgresRepo) insert(ctx context.Context, tx pgx.Tx, b Book) error {
	const insertSQL = `
		INSERT INTO books (id, title, author, cover_url, tags, status, rating, description, date_added, date_finished, notes_count)
		VALUES ($1, $2, $3, $4, $5, $6::book_status, $7, NULLIF($8, ''), $9::date, NULLIF($10, '')::date, $11)
	`
	_, err := tx.Exec(ctx, insertSQL,
		b.ID, b.Title, b.Author, b.CoverURL, b.Tags, string(b.Status), b.Rating,
		b.Description, b.DateAdded, b.DateFinished, b.NotesCount,
	)
	return err
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	var status string
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.CoverURL, &b.Tags, &status, &b.Rating,
		&b.Description, &b.DateAdded, &b.DateFinished, &b.NotesCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	b.Status = Status(status)
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return b, nil
}
