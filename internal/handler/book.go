package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/service"
)

// BookService is what BookHandler needs from service.BookService.
type BookService interface {
	Search(ctx context.Context, query string, limit, offset int) (*service.BookList, error)
	ByCategory(ctx context.Context, category string, limit int) (*service.BookList, error)
	Bestsellers(ctx context.Context) ([]model.BookSummary, error)
	Details(ctx context.Context, externalID string) (*model.BookSummary, error)
}

// BookHandler serves the public catalogue endpoints. None of them need a
// token.
type BookHandler struct {
	books  BookService
	logger *slog.Logger
}

func NewBookHandler(books BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{books: books, logger: logger}
}

// queryInt reads an optional integer query parameter. Absent means 0, which
// the services treat as "use the default".
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be a number")
	}
	return n, nil
}

// HandleSearch searches the provider.
//
// HTTP: GET /api/books/search?q=dune&limit=12&offset=0
func (h *BookHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.books.Search(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Books search successful", res)
}

// HandleCategory lists books of one subject.
//
// HTTP: GET /api/books/categories/{category}?limit=12
func (h *BookHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	category := chi.URLParam(r, "category")
	res, err := h.books.ByCategory(r.Context(), category, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Books in "+res.Category+" category", res)
}

// HandleBestsellers returns the best rated books of a few popular subjects.
//
// HTTP: GET /api/books/bestsellers
func (h *BookHandler) HandleBestsellers(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.Bestsellers(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Bestsellers retrieved successfully", map[string]any{"books": books})
}

// HandleDetails returns one book, caching it locally on first access.
//
// HTTP: GET /api/books/{id}
func (h *BookHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Book details retrieved successfully", map[string]any{"book": book})
}
