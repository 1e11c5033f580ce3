package book

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS books (
	id            INTEGER PRIMARY KEY,
	title         TEXT NOT NULL,
	author        TEXT NOT NULL,
	cover_url     TEXT NOT NULL,
	tags          TEXT NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL CHECK (status IN ('reading', 'finished', 'wishlist')),
	rating        INTEGER CHECK (rating BETWEEN 1 AND 5),
	description   TEXT NOT NULL DEFAULT '',
	date_added    TEXT NOT NULL,
	date_finished TEXT NOT NULL DEFAULT '',
	notes_count   INTEGER NOT NULL DEFAULT 0
);`

const sqliteBookColumns = `id, title, author, cover_url, tags, status, rating, description, date_added, date_finished, notes_count`

// SQLiteRepo stores books in a single-file SQLite database.
type SQLiteRepo struct {
	db      *sql.DB
	timeout time.Duration
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// books table exists.
func OpenSQLite(ctx context.Context, path string, timeout time.Duration) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers, which keeps id assignment safe.
	db.SetMaxOpenConns(1)

	r := &SQLiteRepo{db: db, timeout: timeout, now: time.Now}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := db.ExecContext(timeoutCtx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create books table: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.PingContext(timeoutCtx)
}

func (r *SQLiteRepo) Add(ctx context.Context, draft Draft) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(timeoutCtx, nil)
	if err != nil {
		return Book{}, err
	}
	defer tx.Rollback()

	var nextID int
	if err := tx.QueryRowContext(timeoutCtx, `SELECT COALESCE(MAX(id), 0) + 1 FROM books`).Scan(&nextID); err != nil {
		return Book{}, err
	}
	b := NewBook(nextID, draft, Today(r.now()))
	if err := sqliteInsert(timeoutCtx, tx, b); err != nil {
		return Book{}, err
	}
	if err := tx.Commit(); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, patch Patch) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(timeoutCtx, nil)
	if err != nil {
		return Book{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(timeoutCtx, `SELECT `+sqliteBookColumns+` FROM books WHERE id = ?`, patch.ID)
	current, err := scanSQLiteBook(row)
	if err != nil {
		return Book{}, err
	}
	updated := ApplyPatch(current, patch, Today(r.now()))

	tags, err := json.Marshal(updated.Tags)
	if err != nil {
		return Book{}, err
	}
	const updateSQL = `
		UPDATE books
		SET title = ?, author = ?, cover_url = ?, tags = ?, status = ?, rating = ?, description = ?, date_finished = ?
		WHERE id = ?
	`
	_, err = tx.ExecContext(timeoutCtx, updateSQL,
		updated.Title, updated.Author, updated.CoverURL, string(tags), string(updated.Status),
		nullableInt(updated.Rating), updated.Description, updated.DateFinished, updated.ID,
	)
	if err != nil {
		return Book{}, err
	}
	if err := tx.Commit(); err != nil {
		return Book{}, err
	}
	return updated, nil
}

func (r *SQLiteRepo) Remove(ctx context.Context, id int) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(timeoutCtx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) Get(ctx context.Context, id int) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(timeoutCtx, `SELECT `+sqliteBookColumns+` FROM books WHERE id = ?`, id)
	return scanSQLiteBook(row)
}

func (r *SQLiteRepo) List(ctx context.Context) ([]Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(timeoutCtx, `SELECT `+sqliteBookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		b, err := scanSQLiteBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Import inserts books with their existing ids and dates.
func (r *SQLiteRepo) Import(ctx context.Context, books []Book) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(timeoutCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range books {
		if err := sqliteInsert(timeoutCtx, tx, b); err != nil {
			return fmt.Errorf("import book %d: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

func sqliteInsert(ctx context.Context, tx *sql.Tx, b Book) error {
	tags, err := json.Marshal(b.Tags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO books (`+sqliteBookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.CoverURL, string(tags), string(b.Status),
		nullableInt(b.Rating), b.Description, b.DateAdded, b.DateFinished, b.NotesCount,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBook(row rowScanner) (Book, error) {
	var b Book
	var tags, status string
	var rating sql.NullInt64
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.CoverURL, &tags, &status, &rating,
		&b.Description, &b.DateAdded, &b.DateFinished, &b.NotesCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
		return Book{}, fmt.Errorf("decode tags of book %d: %w", b.ID, err)
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	b.Status = Status(status)
	if rating.Valid {
		v := int(rating.Int64)
		b.Rating = &v
	}
	return b, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
