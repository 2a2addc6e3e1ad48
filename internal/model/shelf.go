package model

import "time"

// Shelf is one of the three reading states a book can be in for a user.
type Shelf string

const (
	ShelfReading    Shelf = "reading"
	ShelfWantToRead Shelf = "wantToRead"
	ShelfFinished   Shelf = "finished"
)

// Shelves lists every valid shelf in display order.
var Shelves = []Shelf{ShelfReading, ShelfWantToRead, ShelfFinished}

// ParseShelf validates s. Labels are case-sensitive.
func ParseShelf(s string) (Shelf, bool) {
	sh := Shelf(s)
	return sh, sh.Valid()
}

// Valid reports whether s is one of Shelves.
func (s Shelf) Valid() bool {
	switch s {
	case ShelfReading, ShelfWantToRead, ShelfFinished:
		return true
	}
	return false
}

// ShelfEntry places one book on one shelf for one user. There is at most one
// entry per (user, book) pair.
//
// Book is populated by the joined listing queries and left zero otherwise.
type ShelfEntry struct {
	ID        int64     `json:"id"         db:"id"`
	UserID    int64     `json:"user_id"    db:"user_id"`
	BookID    int64     `json:"book_id"    db:"book_id"`
	Shelf     Shelf     `json:"shelf_type" db:"shelf_type"`
	AddedAt   time.Time `json:"added_at"   db:"added_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Book      Book      `json:"-"          db:"book"`
}

// ShelfEntryView is the public projection of an entry with its book.
type ShelfEntryView struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	BookID    int64       `json:"book_id"`
	Shelf     Shelf       `json:"shelf_type"`
	AddedAt   time.Time   `json:"added_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Book      BookSummary `json:"book"`
}

// View returns the public projection of e.
func (e *ShelfEntry) View() ShelfEntryView {
	return ShelfEntryView{
		ID:        e.ID,
		UserID:    e.UserID,
		BookID:    e.BookID,
		Shelf:     e.Shelf,
		AddedAt:   e.AddedAt,
		UpdatedAt: e.UpdatedAt,
		Book:      e.Book.Summary(),
	}
}

// Bookshelves groups a user's entries by shelf. All three keys are always
// present in the JSON output.
type Bookshelves struct {
	Reading    []ShelfEntryView `json:"reading"`
	WantToRead []ShelfEntryView `json:"wantToRead"`
	Finished   []ShelfEntryView `json:"finished"`
}

// GroupByShelf buckets entries, preserving their order within each shelf.
func GroupByShelf(entries []ShelfEntry) Bookshelves {
	out := Bookshelves{
		Reading:    []ShelfEntryView{},
		WantToRead: []ShelfEntryView{},
		Finished:   []ShelfEntryView{},
	}
	for i := range entries {
		v := entries[i].View()
		switch entries[i].Shelf {
		case ShelfReading:
			out.Reading = append(out.Reading, v)
		case ShelfWantToRead:
			out.WantToRead = append(out.WantToRead, v)
		case ShelfFinished:
			out.Finished = append(out.Finished, v)
		}
	}
	return out
}

// ShelfOutcome says whether AddOrMove created a new entry or moved an
// existing one.
type ShelfOutcome string

const (
	OutcomeAdded ShelfOutcome = "added"
	OutcomeMoved ShelfOutcome = "moved"
)
