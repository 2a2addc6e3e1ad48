package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/provider/googlebooks"
	"github.com/sakif/bookifyme/internal/repository"
	"github.com/sakif/bookifyme/internal/validation"
)

// Search paging limits.
const (
	DefaultSearchLimit = 12
	MaxSearchLimit     = 40
)

// Bestseller sampling: bestsellersPerCategory books from each category, top
// bestsellersTotal by rating overall.
var bestsellerCategories = []string{"fiction", "science", "technology"}

const (
	bestsellersPerCategory = 4
	bestsellersTotal       = 12
)

// BookProvider is the external metadata source. *googlebooks.Client
// implements it.
type BookProvider interface {
	Search(ctx context.Context, query string, limit, offset int) ([]model.BookData, int, error)
	Get(ctx context.Context, id string) (*model.BookData, error)
}

// BookList is a page of provider results. Exactly one of Query and Category
// is set, depending on which listing produced it.
type BookList struct {
	Books      []model.BookSummary `json:"books"`
	TotalCount int                 `json:"total_count"`
	Query      string              `json:"query,omitempty"`
	Category   string              `json:"category,omitempty"`
}

// BookService is the local book cache in front of the provider.
//
// Books are cached on first reference (a shelf add or a details lookup) and
// never refreshed. Search results are passed through without caching.
type BookService struct {
	books     repository.BookshelfRepository
	provider  BookProvider
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a BookService.
func NewBookService(
	books repository.BookshelfRepository,
	provider BookProvider,
	validator *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		books:     books,
		provider:  provider,
		validator: validator,
		logger:    logger,
	}
}

// GetOrCreate returns the cached book for externalID, creating it from
// supplied (when non-nil) or from the provider on a miss.
//
// Two requests may miss the cache for the same id at once. The UNIQUE index
// on google_books_id lets exactly one insert win; the loser's transaction is
// re-run and finds the winner's row.
func (s *BookService) GetOrCreate(ctx context.Context, externalID string, supplied *model.BookData) (*model.Book, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperror.ValidationFailed("book_id", "Book ID is required")
	}

	book, err := s.books.GetBookByExternalID(ctx, externalID)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/book: loading %s: %w", externalID, err)
	}

	candidate, err := s.candidate(ctx, externalID, supplied)
	if err != nil {
		return nil, err
	}

	err = retryOnConflict(ctx, func() error {
		return s.books.InBookshelfTx(ctx, func(q repository.BookshelfQueries) error {
			b, err := findOrInsertBook(ctx, q, candidate)
			book = b
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("service/book: caching %s: %w", externalID, err)
	}

	s.logger.InfoContext(ctx, "book cached",
		slog.String("googleBooksID", externalID),
		slog.Int64("bookID", book.ID),
	)
	return book, nil
}

// candidate builds the Book to insert on a cache miss. Supplied data is
// validated; otherwise the provider is asked. It must be called outside any
// transaction so the provider round-trip never holds the write lock.
func (s *BookService) candidate(ctx context.Context, externalID string, supplied *model.BookData) (*model.Book, error) {
	if supplied != nil {
		if err := s.validator.Validate(supplied); err != nil {
			return nil, err
		}
		return supplied.ToBook(externalID), nil
	}

	data, err := s.provider.Get(ctx, externalID)
	if err != nil {
		if errors.Is(err, googlebooks.ErrNotFound) {
			return nil, apperror.NotFound("Book not found via Google API")
		}
		s.logger.ErrorContext(ctx, "book lookup failed",
			slog.String("googleBooksID", externalID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.NotAvailable("Book lookup failed", err)
	}
	return data.ToBook(externalID), nil
}

// findOrInsertBook is the transactional half of GetOrCreate, shared with the
// bookshelf ledger.
func findOrInsertBook(ctx context.Context, q repository.BookshelfQueries, candidate *model.Book) (*model.Book, error) {
	existing, err := q.GetBookByExternalID(ctx, candidate.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	book := *candidate
	if err := q.InsertBook(ctx, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Details returns the summary of one book, caching it on first access.
func (s *BookService) Details(ctx context.Context, externalID string) (*model.BookSummary, error) {
	book, err := s.GetOrCreate(ctx, externalID, nil)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("Book not found")
		}
		return nil, err
	}
	summary := book.Summary()
	return &summary, nil
}

// ClampSearchLimit applies the default (for 0) and the [1, MaxSearchLimit]
// bounds.
func ClampSearchLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultSearchLimit
	case limit < 1:
		return 1
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	}
	return limit
}

// Search queries the provider. Results are summaries of uncached books, so
// they carry google_books_id but no local id.
func (s *BookService) Search(ctx context.Context, query string, limit, offset int) (*BookList, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "Search query is required")
	}

	books, total, err := s.search(ctx, query, ClampSearchLimit(limit), max(offset, 0))
	if err != nil {
		s.logger.ErrorContext(ctx, "book search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil, apperror.NotAvailable("Search failed", err)
	}
	return &BookList{Books: books, TotalCount: total, Query: query}, nil
}

// ByCategory lists books whose subject matches category.
func (s *BookService) ByCategory(ctx context.Context, category string, limit int) (*BookList, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperror.ValidationFailed("category", "Category is required")
	}

	books, total, err := s.search(ctx, "subject:"+category, ClampSearchLimit(limit), 0)
	if err != nil {
		s.logger.ErrorContext(ctx, "category listing failed",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return nil, apperror.NotAvailable("Failed to fetch category books", err)
	}
	return &BookList{Books: books, TotalCount: total, Category: category}, nil
}

// Bestsellers samples a few categories in parallel and returns the best
// rated books overall. Ties keep category order.
func (s *BookService) Bestsellers(ctx context.Context) ([]model.BookSummary, error) {
	results := make([][]model.BookSummary, len(bestsellerCategories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range bestsellerCategories {
		g.Go(func() error {
			books, _, err := s.search(gctx, "subject:"+category, bestsellersPerCategory, 0)
			if err != nil {
				return fmt.Errorf("category %s: %w", category, err)
			}
			results[i] = books
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "bestsellers failed", slog.String("error", err.Error()))
		return nil, apperror.NotAvailable("Failed to fetch bestsellers", err)
	}

	all := slices.Concat(results...)
	slices.SortStableFunc(all, func(a, b model.BookSummary) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	if len(all) > bestsellersTotal {
		all = all[:bestsellersTotal]
	}
	if all == nil {
		all = []model.BookSummary{}
	}
	return all, nil
}

func (s *BookService) search(ctx context.Context, query string, limit, offset int) ([]model.BookSummary, int, error) {
	data, total, err := s.provider.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	books := make([]model.BookSummary, 0, len(data))
	for i := range data {
		books = append(books, data[i].Summary())
	}
	return books, total, nil
}
