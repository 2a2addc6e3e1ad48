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

const bookColumns = `id, google_books_id, title, authors, description, categories, thumbnail,
	average_rating, ratings_count, published_date, page_count, language,
	preview_link, info_link, created_at`

// GetBookByExternalID looks a book up by its Google Books id.
func (q *queries) GetBookByExternalID(ctx context.Context, externalID string) (*model.Book, error) {
	var b model.Book
	err := sqlx.GetContext(ctx, q.ext, &b,
		`SELECT `+bookColumns+` FROM books WHERE google_books_id = ?`, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Book not found")
		}
		return nil, fmt.Errorf("sqlite: getting book %q: %w", externalID, err)
	}
	return &b, nil
}

// InsertBook caches a book and fills in its ID. A second insert for the same
// external id is apperror.ErrConflict; the caller re-reads the existing row.
func (q *queries) InsertBook(ctx context.Context, book *model.Book) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now()
	}
	book.CreatedAt = timestamp(book.CreatedAt)
	if book.Authors == nil {
		book.Authors = model.StringList{}
	}
	if book.Categories == nil {
		book.Categories = model.StringList{}
	}

	res, err := q.ext.ExecContext(ctx,
		`INSERT INTO books (
			google_books_id, title, authors, description, categories, thumbnail,
			average_rating, ratings_count, published_date, page_count, language,
			preview_link, info_link, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ExternalID,
		book.Title,
		book.Authors,
		book.Description,
		book.Categories,
		book.Thumbnail,
		book.AverageRating,
		book.RatingsCount,
		book.PublishedDate,
		book.PageCount,
		book.Language,
		book.PreviewLink,
		book.InfoLink,
		book.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Book already cached")
		}
		return fmt.Errorf("sqlite: inserting book %q: %w", book.ExternalID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading book id: %w", err)
	}
	book.ID = id
	return nil
}
