package model

import (
	"bytes"
	"encoding/json"
)

// GenreCount is one entry of a ranked genre list.
type GenreCount struct {
	Genre string
	Count int
}

// RankedGenres is serialised as a JSON object whose keys appear in rank order,
// e.g. {"Fiction":3,"History":1}. encoding/json sorts map keys, so a map
// cannot be used here.
type RankedGenres []GenreCount

// MarshalJSON implements json.Marshaler.
func (r RankedGenres) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Genre)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(g.Count)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ReadingProgress counts entries per shelf.
type ReadingProgress struct {
	Finished   int `json:"finished"`
	Reading    int `json:"reading"`
	WantToRead int `json:"want_to_read"`
}

// ReadingStats summarises a user's bookshelf.
type ReadingStats struct {
	TotalBooksRead   int             `json:"total_books_read"`
	TotalPagesRead   int64           `json:"total_pages_read"`
	UniqueGenres     int             `json:"unique_genres"`
	AverageRating    float64         `json:"average_rating"`
	CurrentlyReading int             `json:"currently_reading"`
	WantToRead       int             `json:"want_to_read"`
	TopGenres        RankedGenres    `json:"top_genres"`
	ReadingProgress  ReadingProgress `json:"reading_progress"`
}
