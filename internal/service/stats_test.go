package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bookifyme/internal/model"
)

func entry(shelf model.Shelf, pages *int64, rating *float64, categories ...string) model.ShelfEntry {
	return model.ShelfEntry{
		Shelf: shelf,
		Book: model.Book{
			PageCount:     pages,
			AverageRating: rating,
			Categories:    model.StringList(categories),
		},
	}
}

func TestComputeStats_PagesAndGenres(t *testing.T) {
	stats := ComputeStats([]model.ShelfEntry{
		entry(model.ShelfFinished, ptr(int64(100)), nil, "sci"),
		entry(model.ShelfFinished, nil, nil, "sci", "history"),
	})

	assert.Equal(t, 2, stats.TotalBooksRead)
	assert.Equal(t, int64(100), stats.TotalPagesRead)
	assert.Equal(t, 2, stats.UniqueGenres)
	assert.Equal(t, 0.0, stats.AverageRating)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Zero(t, stats.TotalBooksRead)
	assert.Zero(t, stats.AverageRating)

	raw, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total_books_read": 0,
		"total_pages_read": 0,
		"unique_genres": 0,
		"average_rating": 0,
		"currently_reading": 0,
		"want_to_read": 0,
		"top_genres": {},
		"reading_progress": {"finished": 0, "reading": 0, "want_to_read": 0}
	}`, string(raw))
}

func TestComputeStats_OnlyFinishedCountTowardsTotals(t *testing.T) {
	stats := ComputeStats([]model.ShelfEntry{
		entry(model.ShelfReading, ptr(int64(500)), ptr(5.0), "Drama"),
		entry(model.ShelfWantToRead, ptr(int64(300)), ptr(1.0), "Poetry"),
		entry(model.ShelfWantToRead, nil, nil),
		entry(model.ShelfFinished, ptr(int64(200)), ptr(4.0), "History"),
	})

	assert.Equal(t, int64(200), stats.TotalPagesRead)
	assert.Equal(t, 1, stats.UniqueGenres)
	assert.Equal(t, 4.0, stats.AverageRating)
	assert.Equal(t, 1, stats.CurrentlyReading)
	assert.Equal(t, 2, stats.WantToRead)
	assert.Equal(t, model.ReadingProgress{Finished: 1, Reading: 1, WantToRead: 2}, stats.ReadingProgress)
}

func TestComputeStats_AverageRatingRounding(t *testing.T) {
	tests := []struct {
		name    string
		ratings []float64
		want    float64
	}{
		{"single", []float64{3.0}, 3.0},
		{"rounds to one decimal", []float64{4.0, 4.1, 4.1}, 4.1},
		{"exact half rounds to even", []float64{4.0, 4.5}, 4.2},
		{"exact half rounds up to even", []float64{3.5, 4.0}, 3.8},
		{"thirds", []float64{1, 2, 2}, 1.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []model.ShelfEntry
			for _, r := range tt.ratings {
				entries = append(entries, entry(model.ShelfFinished, nil, ptr(r)))
			}
			// an unrated finished book is left out of the mean
			entries = append(entries, entry(model.ShelfFinished, nil, nil))

			assert.Equal(t, tt.want, ComputeStats(entries).AverageRating)
		})
	}
}

func TestRoundTenth(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{3.25, 3.2},
		{3.75, 3.8},
		{0.15, 0.1}, // stored just below the half
		{2.96, 3.0},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundTenth(tt.in), "roundTenth(%v)", tt.in)
	}
}

func TestComputeStats_TopGenres(t *testing.T) {
	stats := ComputeStats([]model.ShelfEntry{
		entry(model.ShelfReading, nil, nil, "Fantasy", "Adventure"),
		entry(model.ShelfFinished, nil, nil, "History"),
		entry(model.ShelfWantToRead, nil, nil, "Adventure", "Science"),
		entry(model.ShelfFinished, nil, nil, "Poetry", "Drama", "Satire"),
		entry(model.ShelfFinished, nil, nil, "Drama"),
	})

	// Adventure 2, Drama 2, then singles in first-seen order.
	assert.Equal(t, model.RankedGenres{
		{Genre: "Adventure", Count: 2},
		{Genre: "Drama", Count: 2},
		{Genre: "Fantasy", Count: 1},
		{Genre: "History", Count: 1},
		{Genre: "Science", Count: 1},
	}, stats.TopGenres)

	raw, err := json.Marshal(stats.TopGenres)
	require.NoError(t, err)
	assert.Equal(t, `{"Adventure":2,"Drama":2,"Fantasy":1,"History":1,"Science":1}`, string(raw))
}

func TestStatsService_ForUser(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, db, "alice")

	svc := NewStatsService(db)

	books := []*model.Book{
		{ExternalID: "a", Title: "A", PageCount: ptr(int64(100)), Categories: model.StringList{"sci"}},
		{ExternalID: "b", Title: "B", Categories: model.StringList{"sci", "history"}},
	}
	for _, b := range books {
		require.NoError(t, db.InsertBook(ctx, b))
		require.NoError(t, db.InsertEntry(ctx, &model.ShelfEntry{UserID: user, BookID: b.ID, Shelf: model.ShelfFinished}))
	}

	stats, err := svc.ForUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.TotalPagesRead)
	assert.Equal(t, 2, stats.UniqueGenres)
	assert.Equal(t, 2, stats.TotalBooksRead)
}
