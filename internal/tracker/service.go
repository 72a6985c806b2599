// Package tracker manages per-user watched films and reviews, joining the
// catalog client with the selected data backend.
package tracker

import (
	"context"
	"fmt"
	"math"

	"github.com/JaewonYunDS/Filmind/internal/catalog"
	"github.com/JaewonYunDS/Filmind/internal/store"
	"github.com/JaewonYunDS/Filmind/internal/types"
)

type Service struct {
	catalog  *catalog.Client
	selector *store.Selector
}

func NewService(catalog *catalog.Client, selector *store.Selector) *Service {
	return &Service{catalog: catalog, selector: selector}
}

// ProfileStats summarizes a user's tracking activity.
type ProfileStats struct {
	WatchedCount  int     `json:"watched_count"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"` // one decimal, 0 when no reviews
}

// ToggleWatched flips the watched state for a film. The catalog record is
// fetched first; an unknown or unreleased film id yields ErrNotFound.
func (s *Service) ToggleWatched(ctx context.Context, actor *types.Identity, movieID int) (bool, error) {
	film, err := s.catalog.FetchFilmDetails(ctx, movieID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch film %d: %w", movieID, err)
	}
	if film == nil {
		return false, store.ErrNotFound
	}

	backend, identity := s.selector.Pick(actor)
	return backend.ToggleWatched(ctx, identity, film)
}

// SaveReview upserts the caller's review for a film and marks it watched if
// it is not already.
func (s *Service) SaveReview(ctx context.Context, actor *types.Identity, movieID int, req types.SaveReviewRequest) (*types.Review, error) {
	film, err := s.catalog.FetchFilmDetails(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch film %d: %w", movieID, err)
	}
	if film == nil {
		return nil, store.ErrNotFound
	}

	backend, identity := s.selector.Pick(actor)
	return backend.SaveReview(ctx, identity, film, req.Rating, req.Text)
}

// FilmDetails returns the normalized catalog record plus the caller's
// watched flag and review. A film without a release date yields ErrNotFound.
func (s *Service) FilmDetails(ctx context.Context, actor *types.Identity, movieID int) (*types.Film, bool, *types.Review, error) {
	film, err := s.catalog.FetchFilmDetails(ctx, movieID)
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to fetch film %d: %w", movieID, err)
	}
	if film == nil {
		return nil, false, nil, store.ErrNotFound
	}

	backend, identity := s.selector.Pick(actor)
	watched, review, err := backend.MovieUserData(ctx, identity.ID, movieID)
	if err != nil {
		return nil, false, nil, err
	}
	return film, watched, review, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]types.FilmSummary, error) {
	return s.catalog.SearchFilms(ctx, query)
}

func (s *Service) WatchedMovies(ctx context.Context, actor *types.Identity) ([]types.WatchedEntry, error) {
	backend, identity := s.selector.Pick(actor)
	return backend.WatchedMovies(ctx, identity.ID)
}

func (s *Service) Reviews(ctx context.Context, actor *types.Identity) ([]types.Review, error) {
	backend, identity := s.selector.Pick(actor)
	return backend.Reviews(ctx, identity.ID)
}

// Stats computes the profile summary from the caller's lists.
func (s *Service) Stats(ctx context.Context, actor *types.Identity) (*ProfileStats, error) {
	backend, identity := s.selector.Pick(actor)

	watched, err := backend.WatchedMovies(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	reviews, err := backend.Reviews(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	stats := &ProfileStats{
		WatchedCount: len(watched),
		ReviewCount:  len(reviews),
	}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		avg := float64(sum) / float64(len(reviews))
		stats.AverageRating = math.Round(avg*10) / 10
	}
	return stats, nil
}
