// Package bookstore persists the local book catalog in Postgres and
// keeps the enrichment cache consistent with it: updating or deleting
// a book drops every cached provider result for its ISBN, so the next
// enrichment refetches fresh data.
package bookstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no book matches the given ISBN.
var ErrNotFound = errors.New("book not found")

// Book is a row in the local catalog. Enrichment data lives in the
// cache and the merged responses, not here; the catalog stores only
// what the owner entered.
type Book struct {
	ID        int64     `json:"id"`
	ISBN13    string    `json:"isbn13"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors"`
	OwnerNote string    `json:"owner_note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Invalidator drops cached provider results for a query token.
// Satisfied by *cache.Cache.
type Invalidator interface {
	Invalidate(ctx context.Context, token string) error
}

// Store is the Postgres-backed catalog repository.
type Store struct {
	db     DB
	cache  Invalidator
	logger zerolog.Logger
}

// New creates a store. The invalidator may be nil when no cache is
// configured.
func New(db DB, cache Invalidator) *Store {
	if db == nil {
		panic("bookstore db cannot be nil")
	}
	return &Store{
		db:     db,
		cache:  cache,
		logger: logging.NewLogger("bookstore"),
	}
}

// Schema is the catalog table definition, applied at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
    id          BIGSERIAL PRIMARY KEY,
    isbn13      TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    authors     TEXT[] NOT NULL DEFAULT '{}',
    owner_note  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Init applies the schema.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// GetByISBN fetches one book by its canonical ISBN-13.
func (s *Store) GetByISBN(ctx context.Context, isbn13 string) (*Book, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, isbn13, title, authors, owner_note, created_at, updated_at
		 FROM books WHERE isbn13 = $1`, isbn13)

	var b Book
	err := row.Scan(&b.ID, &b.ISBN13, &b.Title, &b.Authors, &b.OwnerNote, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book %s: %w", isbn13, err)
	}
	return &b, nil
}

// List returns a page of the catalog ordered by title.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Book, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, isbn13, title, authors, owner_note, created_at, updated_at
		 FROM books ORDER BY title LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.ISBN13, &b.Title, &b.Authors, &b.OwnerNote, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Upsert inserts a book or updates the existing row for its ISBN.
func (s *Store) Upsert(ctx context.Context, b *Book) error {
	row := s.db.QueryRow(ctx,
		`INSERT INTO books (isbn13, title, authors, owner_note)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (isbn13) DO UPDATE
		 SET title = EXCLUDED.title,
		     authors = EXCLUDED.authors,
		     owner_note = EXCLUDED.owner_note,
		     updated_at = now()
		 RETURNING id, created_at, updated_at`,
		b.ISBN13, b.Title, b.Authors, b.OwnerNote)

	if err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("upsert book %s: %w", b.ISBN13, err)
	}

	s.logger.Info().Str("isbn13", b.ISBN13).Str("title", b.Title).Msg("Book saved")
	return nil
}

// Update modifies an existing book and invalidates its cached provider
// results. The stale entries must go even though the providers were
// not consulted, because the owner may have corrected the ISBN
// association.
func (s *Store) Update(ctx context.Context, b *Book) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE books SET title = $2, authors = $3, owner_note = $4, updated_at = now()
		 WHERE isbn13 = $1`,
		b.ISBN13, b.Title, b.Authors, b.OwnerNote)
	if err != nil {
		return fmt.Errorf("update book %s: %w", b.ISBN13, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.invalidate(ctx, b.ISBN13)
	return nil
}

// Delete removes a book and invalidates its cached provider results.
func (s *Store) Delete(ctx context.Context, isbn13 string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM books WHERE isbn13 = $1`, isbn13)
	if err != nil {
		return fmt.Errorf("delete book %s: %w", isbn13, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.invalidate(ctx, isbn13)
	s.logger.Info().Str("isbn13", isbn13).Msg("Book deleted")
	return nil
}

// invalidate drops the cached provider results for one ISBN. Cache
// trouble never fails the catalog write; the entries expire via TTL
// anyway.
func (s *Store) invalidate(ctx context.Context, isbn13 string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, isbn13); err != nil {
		s.logger.Warn().Err(err).Str("isbn13", isbn13).Msg("Cache invalidation failed")
	}
}
