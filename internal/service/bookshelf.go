package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/repository"
)

// BookshelfService keeps each user's three shelves. A book is on at most one
// shelf per user; adding it again moves it.
type BookshelfService struct {
	shelves repository.BookshelfRepository
	catalog *BookService
	logger  *slog.Logger
	now     func() time.Time
}

// NewBookshelfService creates a BookshelfService. catalog resolves books that
// are not cached yet.
func NewBookshelfService(shelves repository.BookshelfRepository, catalog *BookService, logger *slog.Logger) *BookshelfService {
	return &BookshelfService{
		shelves: shelves,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

func parseShelfLabel(label string) (model.Shelf, error) {
	shelf, ok := model.ParseShelf(label)
	if !ok {
		return "", apperror.ValidationFailed("shelf_type", "Invalid shelf type")
	}
	return shelf, nil
}

// AddOrMove puts the book on shelf, caching the book first when needed.
//
// HOW IT STAYS CONSISTENT:
//  1. The book candidate is built before the transaction, so a slow provider
//     never holds the database write lock.
//  2. Book and entry are found-or-created in one transaction.
//  3. A UNIQUE violation from a concurrent writer rolls everything back and
//     the transaction is re-run; the retry sees the winner's rows.
func (s *BookshelfService) AddOrMove(ctx context.Context, userID int64, externalID, shelfLabel string, supplied *model.BookData) (model.ShelfOutcome, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" || shelfLabel == "" {
		return "", apperror.ValidationFailed("", "Book ID and shelf type are required")
	}
	shelf, err := parseShelfLabel(shelfLabel)
	if err != nil {
		return "", err
	}

	candidate, err := s.shelves.GetBookByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return "", fmt.Errorf("service/bookshelf: loading book %s: %w", externalID, err)
		}
		if candidate, err = s.catalog.candidate(ctx, externalID, supplied); err != nil {
			return "", err
		}
	}

	var outcome model.ShelfOutcome
	err = retryOnConflict(ctx, func() error {
		return s.shelves.InBookshelfTx(ctx, func(q repository.BookshelfQueries) error {
			book, err := findOrInsertBook(ctx, q, candidate)
			if err != nil {
				return err
			}

			entry, err := q.GetEntry(ctx, userID, book.ID)
			switch {
			case err == nil:
				outcome = model.OutcomeMoved
				return q.UpdateEntryShelf(ctx, entry.ID, shelf, s.now())
			case errors.Is(err, apperror.ErrNotFound):
				outcome = model.OutcomeAdded
				return q.InsertEntry(ctx, &model.ShelfEntry{
					UserID:  userID,
					BookID:  book.ID,
					Shelf:   shelf,
					AddedAt: s.now(),
				})
			default:
				return err
			}
		})
	})
	if err != nil {
		return "", fmt.Errorf("service/bookshelf: adding %s for user %d: %w", externalID, userID, err)
	}

	s.logger.InfoContext(ctx, "bookshelf updated",
		slog.Int64("userID", userID),
		slog.String("googleBooksID", externalID),
		slog.String("shelf", string(shelf)),
		slog.String("outcome", string(outcome)),
	)
	return outcome, nil
}

// Move changes the shelf of a book the user already has.
func (s *BookshelfService) Move(ctx context.Context, userID int64, externalID, newShelf string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" || newShelf == "" {
		return apperror.ValidationFailed("", "Book ID and new shelf are required")
	}
	shelf, err := parseShelfLabel(newShelf)
	if err != nil {
		return err
	}

	err = s.shelves.InBookshelfTx(ctx, func(q repository.BookshelfQueries) error {
		entry, err := q.GetEntryByExternalID(ctx, userID, externalID)
		if err != nil {
			return err
		}
		return q.UpdateEntryShelf(ctx, entry.ID, shelf, s.now())
	})
	if err != nil {
		return fmt.Errorf("service/bookshelf: moving %s for user %d: %w", externalID, userID, err)
	}
	return nil
}

// Remove takes the book off the user's shelves. When expected is not empty
// the book must currently be on that shelf.
func (s *BookshelfService) Remove(ctx context.Context, userID int64, externalID, expected string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return apperror.ValidationFailed("book_id", "Book ID is required")
	}
	var want model.Shelf
	if expected != "" {
		shelf, err := parseShelfLabel(expected)
		if err != nil {
			return err
		}
		want = shelf
	}

	err := s.shelves.InBookshelfTx(ctx, func(q repository.BookshelfQueries) error {
		entry, err := q.GetEntryByExternalID(ctx, userID, externalID)
		if err != nil {
			return err
		}
		if want != "" && entry.Shelf != want {
			return apperror.NotFound("Book not found in that shelf")
		}
		return q.DeleteEntry(ctx, entry.ID)
	})
	if err != nil {
		return fmt.Errorf("service/bookshelf: removing %s for user %d: %w", externalID, userID, err)
	}

	s.logger.InfoContext(ctx, "book removed from shelf",
		slog.Int64("userID", userID),
		slog.String("googleBooksID", externalID),
	)
	return nil
}

// ListByShelf returns the user's entries grouped by shelf.
func (s *BookshelfService) ListByShelf(ctx context.Context, userID int64) (model.Bookshelves, error) {
	entries, err := s.shelves.ListEntries(ctx, userID)
	if err != nil {
		return model.Bookshelves{}, fmt.Errorf("service/bookshelf: listing for user %d: %w", userID, err)
	}
	return model.GroupByShelf(entries), nil
}
