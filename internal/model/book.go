package model

import (
	"strings"
	"time"
)

// Defaults applied when a book is built from incomplete provider or
// caller-supplied data.
const (
	DefaultTitle       = "Unknown Title"
	DefaultDescription = "No description available."
	DefaultAuthor      = "Unknown Author"
)

// Book is a cached copy of external book metadata. ExternalID (the Google
// Books volume id) is unique; rows are created on first reference and never
// updated afterwards.
type Book struct {
	ID            int64      `db:"id"`
	ExternalID    string     `db:"google_books_id"`
	Title         string     `db:"title"`
	Authors       StringList `db:"authors"`
	Description   string     `db:"description"`
	Categories    StringList `db:"categories"`
	Thumbnail     string     `db:"thumbnail"`
	AverageRating *float64   `db:"average_rating"`
	RatingsCount  *int64     `db:"ratings_count"`
	PublishedDate string     `db:"published_date"`
	PageCount     *int64     `db:"page_count"`
	Language      string     `db:"language"`
	PreviewLink   string     `db:"preview_link"`
	InfoLink      string     `db:"info_link"`
	CreatedAt     time.Time  `db:"created_at"`
}

// BookSummary is the public projection of a book. Lists are never null and
// rating/ratings_count default to 0.
//
// ID is the local id and is omitted for search results that were never
// cached. Price and Currency are only known for fresh provider results.
type BookSummary struct {
	ID            int64    `json:"id,omitempty"`
	ExternalID    string   `json:"google_books_id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	Thumbnail     string   `json:"thumbnail"`
	Rating        float64  `json:"rating"`
	RatingsCount  int64    `json:"ratings_count"`
	PublishedDate string   `json:"published_date"`
	PageCount     *int64   `json:"page_count"`
	Language      string   `json:"language"`
	PreviewLink   string   `json:"preview_link"`
	InfoLink      string   `json:"info_link"`
	Price         *float64 `json:"price,omitempty"`
	Currency      string   `json:"currency,omitempty"`
}

// Summary returns the public projection of b.
func (b *Book) Summary() BookSummary {
	s := BookSummary{
		ID:            b.ID,
		ExternalID:    b.ExternalID,
		Title:         b.Title,
		Authors:       b.Authors.OrEmpty(),
		Description:   b.Description,
		Categories:    b.Categories.OrEmpty(),
		Thumbnail:     b.Thumbnail,
		PublishedDate: b.PublishedDate,
		PageCount:     b.PageCount,
		Language:      b.Language,
		PreviewLink:   b.PreviewLink,
		InfoLink:      b.InfoLink,
	}
	if b.AverageRating != nil {
		s.Rating = *b.AverageRating
	}
	if b.RatingsCount != nil {
		s.RatingsCount = *b.RatingsCount
	}
	return s
}

// BookData is book metadata as it arrives from the provider or from a client
// request (the optional book_data object of an add-to-shelf call).
type BookData struct {
	ExternalID    string   `json:"google_books_id,omitempty"`
	Title         string   `json:"title"          validate:"max=500"`
	Authors       []string `json:"authors"        validate:"max=50,dive,max=200"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"     validate:"max=50,dive,max=200"`
	Thumbnail     string   `json:"thumbnail"      validate:"omitempty,url"`
	Rating        *float64 `json:"rating"         validate:"omitempty,gte=0,lte=5"`
	RatingsCount  *int64   `json:"ratings_count"  validate:"omitempty,gte=0"`
	PublishedDate string   `json:"published_date" validate:"max=32"`
	PageCount     *int64   `json:"page_count"     validate:"omitempty,gte=0"`
	Language      string   `json:"language"       validate:"max=16"`
	PreviewLink   string   `json:"preview_link"   validate:"omitempty,url"`
	InfoLink      string   `json:"info_link"      validate:"omitempty,url"`
	Price         *float64 `json:"price,omitempty"`
	Currency      string   `json:"currency,omitempty"`
}

// ToBook builds a cacheable Book for externalID, filling in the title,
// description and author defaults.
func (d *BookData) ToBook(externalID string) *Book {
	b := &Book{
		ExternalID:    externalID,
		Title:         strings.TrimSpace(d.Title),
		Authors:       nonBlank(d.Authors),
		Description:   strings.TrimSpace(d.Description),
		Categories:    nonBlank(d.Categories),
		Thumbnail:     d.Thumbnail,
		AverageRating: d.Rating,
		RatingsCount:  d.RatingsCount,
		PublishedDate: d.PublishedDate,
		PageCount:     d.PageCount,
		Language:      d.Language,
		PreviewLink:   d.PreviewLink,
		InfoLink:      d.InfoLink,
	}
	if b.Title == "" {
		b.Title = DefaultTitle
	}
	if b.Description == "" {
		b.Description = DefaultDescription
	}
	if len(b.Authors) == 0 {
		b.Authors = StringList{DefaultAuthor}
	}
	return b
}

// Summary projects provider data that has not been cached. The same defaults
// as ToBook apply.
func (d *BookData) Summary() BookSummary {
	s := d.ToBook(d.ExternalID).Summary()
	s.Price = d.Price
	s.Currency = d.Currency
	return s
}

func nonBlank(in []string) StringList {
	out := make(StringList, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
