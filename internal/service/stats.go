package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/repository"
)

// TopGenreLimit is how many genres ReadingStats.TopGenres holds.
const TopGenreLimit = 5

// StatsService derives reading statistics from a user's shelf entries.
type StatsService struct {
	entries repository.BookshelfQueries
}

func NewStatsService(entries repository.BookshelfQueries) *StatsService {
	return &StatsService{entries: entries}
}

// ForUser loads the user's entries (with books) and computes their stats.
func (s *StatsService) ForUser(ctx context.Context, userID int64) (model.ReadingStats, error) {
	entries, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		return model.ReadingStats{}, fmt.Errorf("service/stats: loading entries for user %d: %w", userID, err)
	}
	return ComputeStats(entries), nil
}

// ComputeStats is pure. Page count, unique genres and average rating only
// look at finished books; top genres look at every shelf.
func ComputeStats(entries []model.ShelfEntry) model.ReadingStats {
	var (
		stats      model.ReadingStats
		finished   = map[string]struct{}{}
		ratingSum  float64
		ratedBooks int
	)

	for i := range entries {
		e := &entries[i]
		switch e.Shelf {
		case model.ShelfReading:
			stats.CurrentlyReading++
		case model.ShelfWantToRead:
			stats.WantToRead++
		case model.ShelfFinished:
			stats.TotalBooksRead++
			if e.Book.PageCount != nil {
				stats.TotalPagesRead += *e.Book.PageCount
			}
			for _, c := range e.Book.Categories {
				finished[c] = struct{}{}
			}
			if e.Book.AverageRating != nil {
				ratingSum += *e.Book.AverageRating
				ratedBooks++
			}
		}
	}

	stats.UniqueGenres = len(finished)
	if ratedBooks > 0 {
		stats.AverageRating = roundTenth(ratingSum / float64(ratedBooks))
	}
	stats.TopGenres = topGenres(entries, TopGenreLimit)
	stats.ReadingProgress = model.ReadingProgress{
		Finished:   stats.TotalBooksRead,
		Reading:    stats.CurrentlyReading,
		WantToRead: stats.WantToRead,
	}
	return stats
}

// topGenres counts categories over all entries. Equal counts keep the order
// in which the genre was first seen.
func topGenres(entries []model.ShelfEntry, limit int) model.RankedGenres {
	ranked := model.RankedGenres{}
	index := map[string]int{}
	for i := range entries {
		for _, c := range entries[i].Book.Categories {
			if j, ok := index[c]; ok {
				ranked[j].Count++
				continue
			}
			index[c] = len(ranked)
			ranked = append(ranked, model.GenreCount{Genre: c, Count: 1})
		}
	}

	slices.SortStableFunc(ranked, func(a, b model.GenreCount) int {
		return b.Count - a.Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// roundTenth rounds to one decimal place, sending exact halves to the even
// digit (4.25 → 4.2). strconv rounds the exact binary value, so 0.15, stored
// as 0.1499…, gives 0.1; scaling by 10 first would make it exactly 1.5.
func roundTenth(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}
