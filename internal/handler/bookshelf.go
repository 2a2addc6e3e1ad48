package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookifyme/internal/model"
)

// BookshelfService is what BookshelfHandler needs from
// service.BookshelfService.
type BookshelfService interface {
	AddOrMove(ctx context.Context, userID int64, externalID, shelf string, supplied *model.BookData) (model.ShelfOutcome, error)
	Move(ctx context.Context, userID int64, externalID, newShelf string) error
	Remove(ctx context.Context, userID int64, externalID, expected string) error
	ListByShelf(ctx context.Context, userID int64) (model.Bookshelves, error)
}

// StatsService is what BookshelfHandler needs from service.StatsService.
type StatsService interface {
	ForUser(ctx context.Context, userID int64) (model.ReadingStats, error)
}

// BookshelfHandler serves the authenticated user's shelves and statistics.
// Every route is mounted behind auth.RequireAuth.
type BookshelfHandler struct {
	shelves BookshelfService
	stats   StatsService
	logger  *slog.Logger
}

func NewBookshelfHandler(shelves BookshelfService, stats StatsService, logger *slog.Logger) *BookshelfHandler {
	return &BookshelfHandler{shelves: shelves, stats: stats, logger: logger}
}

type addToShelfRequest struct {
	BookID    string          `json:"book_id"`
	ShelfType string          `json:"shelf_type"`
	BookData  *model.BookData `json:"book_data"`
}

// moveRequest accepts the target shelf as "to_shelf" or "new_shelf".
type moveRequest struct {
	BookID   string `json:"book_id"`
	ToShelf  string `json:"to_shelf"`
	NewShelf string `json:"new_shelf"`
}

type removeRequest struct {
	BookID    string `json:"book_id"`
	ShelfType string `json:"shelf_type"`
}

// HandleList returns the user's books grouped by shelf.
//
// HTTP: GET /api/bookshelf
func (h *BookshelfHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	shelves, err := h.shelves.ListByShelf(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Bookshelf retrieved successfully", map[string]any{"bookshelves": shelves})
}

// HandleAdd puts a book on a shelf, or moves it there if it is already on
// another one.
//
// HTTP: POST /api/bookshelf/add
// REQUEST BODY: {"book_id": "zyTCAlFPjgYC", "shelf_type": "reading", "book_data": {...}}
func (h *BookshelfHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req addToShelfRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	outcome, err := h.shelves.AddOrMove(r.Context(), user.ID, req.BookID, req.ShelfType, req.BookData)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	message := "Book added to shelf"
	if outcome == model.OutcomeMoved {
		message = "Book moved to new shelf"
	}
	writeSuccess(w, http.StatusOK, message, map[string]any{"outcome": outcome})
}

// HandleMove moves a book the user already has.
//
// HTTP: POST or PUT /api/bookshelf/move
func (h *BookshelfHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	target := req.ToShelf
	if target == "" {
		target = req.NewShelf
	}
	if err := h.shelves.Move(r.Context(), user.ID, req.BookID, target); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Book moved successfully", nil)
}

// HandleRemove removes a book, optionally only from a given shelf.
//
// HTTP: POST /api/bookshelf/remove
// REQUEST BODY: {"book_id": "...", "shelf_type": "finished"}
func (h *BookshelfHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req removeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.shelves.Remove(r.Context(), user.ID, req.BookID, req.ShelfType); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Book removed from shelf", nil)
}

// HandleDelete removes a book from whichever shelf it is on.
//
// HTTP: DELETE /api/bookshelf/{book_id}
func (h *BookshelfHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.shelves.Remove(r.Context(), user.ID, chi.URLParam(r, "book_id"), ""); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Book removed from shelf", nil)
}

// HandleStats returns reading statistics.
//
// HTTP: GET /api/bookshelf/stats
func (h *BookshelfHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.ForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Reading statistics retrieved successfully", map[string]any{"stats": stats})
}
