package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
)

// entryWithBook selects an entry joined to its book. The quoted aliases put
// the book columns under the `db:"book"` field of model.ShelfEntry.
const entryWithBook = `
	SELECT s.id, s.user_id, s.book_id, s.shelf_type, s.added_at, s.updated_at,
	       b.id              AS "book.id",
	       b.google_books_id AS "book.google_books_id",
	       b.title           AS "book.title",
	       b.authors         AS "book.authors",
	       b.description     AS "book.description",
	       b.categories      AS "book.categories",
	       b.thumbnail       AS "book.thumbnail",
	       b.average_rating  AS "book.average_rating",
	       b.ratings_count   AS "book.ratings_count",
	       b.published_date  AS "book.published_date",
	       b.page_count      AS "book.page_count",
	       b.language        AS "book.language",
	       b.preview_link    AS "book.preview_link",
	       b.info_link       AS "book.info_link",
	       b.created_at      AS "book.created_at"
	FROM bookshelves s
	JOIN books b ON b.id = s.book_id`

var errEntryNotFound = apperror.NotFound("Book not found in your bookshelf")

// GetEntry returns the (user, book) entry without its book.
func (q *queries) GetEntry(ctx context.Context, userID, bookID int64) (*model.ShelfEntry, error) {
	var e model.ShelfEntry
	err := sqlx.GetContext(ctx, q.ext, &e,
		`SELECT id, user_id, book_id, shelf_type, added_at, updated_at
		 FROM bookshelves WHERE user_id = ? AND book_id = ?`,
		userID, bookID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errEntryNotFound
		}
		return nil, fmt.Errorf("sqlite: getting shelf entry (user=%d, book=%d): %w", userID, bookID, err)
	}
	return &e, nil
}

func (q *queries) GetEntryByExternalID(ctx context.Context, userID int64, externalID string) (*model.ShelfEntry, error) {
	var e model.ShelfEntry
	err := sqlx.GetContext(ctx, q.ext, &e,
		entryWithBook+` WHERE s.user_id = ? AND b.google_books_id = ?`,
		userID, externalID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errEntryNotFound
		}
		return nil, fmt.Errorf("sqlite: getting shelf entry (user=%d, book=%q): %w", userID, externalID, err)
	}
	return &e, nil
}

// InsertEntry creates an entry. A second entry for the same (user, book) is
// apperror.ErrConflict.
func (q *queries) InsertEntry(ctx context.Context, entry *model.ShelfEntry) error {
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}
	entry.AddedAt = timestamp(entry.AddedAt)
	entry.UpdatedAt = entry.AddedAt

	res, err := q.ext.ExecContext(ctx,
		`INSERT INTO bookshelves (user_id, book_id, shelf_type, added_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.UserID,
		entry.BookID,
		string(entry.Shelf),
		entry.AddedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Book is already on a shelf")
		}
		return fmt.Errorf("sqlite: inserting shelf entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading shelf entry id: %w", err)
	}
	entry.ID = id
	return nil
}

func (q *queries) UpdateEntryShelf(ctx context.Context, entryID int64, shelf model.Shelf, now time.Time) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE bookshelves SET shelf_type = ?, updated_at = ? WHERE id = ?`,
		string(shelf), timestamp(now), entryID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating shelf entry %d: %w", entryID, err)
	}
	return affectedOne(res, "updating shelf entry", errEntryNotFound)
}

func (q *queries) DeleteEntry(ctx context.Context, entryID int64) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM bookshelves WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting shelf entry %d: %w", entryID, err)
	}
	return affectedOne(res, "deleting shelf entry", errEntryNotFound)
}

func (q *queries) ListEntries(ctx context.Context, userID int64) ([]model.ShelfEntry, error) {
	entries := []model.ShelfEntry{}
	err := sqlx.SelectContext(ctx, q.ext, &entries,
		entryWithBook+` WHERE s.user_id = ? ORDER BY s.added_at, s.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing shelf entries for user %d: %w", userID, err)
	}
	return entries, nil
}
