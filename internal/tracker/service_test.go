package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaewonYunDS/Filmind/internal/catalog"
	"github.com/JaewonYunDS/Filmind/internal/store"
	"github.com/JaewonYunDS/Filmind/internal/types"
)

// newTestService backs the catalog with a fake TMDB that knows movies
// 1..n and reports movie 999 as having no release date.
func newTestService(t *testing.T) *Service {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/movie/")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		releaseDate := "2000-01-01"
		if id == 999 {
			releaseDate = ""
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           id,
			"title":        fmt.Sprintf("Film %d", id),
			"release_date": releaseDate,
		})
	}))
	t.Cleanup(server.Close)

	client := catalog.NewClient("test-key", server.URL)
	selector := store.NewSelector(nil, store.NewLocal())
	return NewService(client, selector)
}

func TestToggleWatched_FetchesFilmFirst(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	watched, err := service.ToggleWatched(ctx, nil, 1)
	require.NoError(t, err)
	assert.True(t, watched)

	entries, err := service.WatchedMovies(ctx, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Film 1", entries[0].Title)
}

func TestToggleWatched_UnreleasedFilmIsNotFound(t *testing.T) {
	service := newTestService(t)

	_, err := service.ToggleWatched(context.Background(), nil, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveReview_UnreleasedFilmIsNotFound(t *testing.T) {
	service := newTestService(t)

	_, err := service.SaveReview(context.Background(), nil, 999, types.SaveReviewRequest{Rating: 5})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFilmDetails_IncludesUserData(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	_, err := service.ToggleWatched(ctx, nil, 2)
	require.NoError(t, err)
	_, err = service.SaveReview(ctx, nil, 2, types.SaveReviewRequest{Rating: 4, Text: "solid"})
	require.NoError(t, err)

	film, watched, review, err := service.FilmDetails(ctx, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, "Film 2", film.Title)
	assert.True(t, watched)
	require.NotNil(t, review)
	assert.Equal(t, 4, review.Rating)
}

func TestStats_AverageRatingOneDecimal(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	_, err := service.SaveReview(ctx, nil, 1, types.SaveReviewRequest{Rating: 5})
	require.NoError(t, err)
	_, err = service.SaveReview(ctx, nil, 2, types.SaveReviewRequest{Rating: 4})
	require.NoError(t, err)
	_, err = service.SaveReview(ctx, nil, 3, types.SaveReviewRequest{Rating: 4})
	require.NoError(t, err)

	stats, err := service.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ReviewCount)
	// 13/3 = 4.333..., rounded to one decimal
	assert.Equal(t, 4.3, stats.AverageRating)
}

func TestStats_NoReviews(t *testing.T) {
	service := newTestService(t)

	stats, err := service.Stats(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.ReviewCount)
	assert.Zero(t, stats.AverageRating)
}
