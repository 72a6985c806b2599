package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", server.URL), server
}

func TestFetchFilmDetails_Normalizes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "credits", r.URL.Query().Get("append_to_response"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           603,
			"title":        "The Matrix",
			"release_date": "1999-03-31",
			"runtime":      136,
			"vote_average": 8.22,
			"overview":     "A hacker learns the truth.",
			"genres":       []map[string]interface{}{{"id": 28, "name": "Action"}},
			"credits": map[string]interface{}{
				"cast": []map[string]interface{}{{"name": "Keanu Reeves", "character": "Neo"}},
				"crew": []map[string]interface{}{
					{"name": "Joel Silver", "job": "Producer"},
					{"name": "Lana Wachowski", "job": "Director"},
				},
			},
		})
	})

	film, err := client.FetchFilmDetails(context.Background(), 603)
	require.NoError(t, err)
	require.NotNil(t, film)

	assert.Equal(t, "The Matrix", film.Title)
	assert.Equal(t, 1999, film.Year)
	assert.Equal(t, "Lana Wachowski", film.Director)
	assert.Equal(t, "8.2", film.Rating)
	assert.Equal(t, []string{"Action"}, film.Genres)
	assert.Equal(t, 136, film.Runtime)
	require.Len(t, film.Cast, 1)
	assert.Equal(t, "Neo", film.Cast[0].Character)
	assert.Equal(t, DefaultPoster, film.Poster)
}

func TestFetchFilmDetails_RejectsMissingReleaseDate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           42,
			"title":        "Unreleased",
			"release_date": "",
		})
	})

	film, err := client.FetchFilmDetails(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, film)
}

func TestFetchFilmDetails_Memoizes(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           603,
			"title":        "The Matrix",
			"release_date": "1999-03-31",
		})
	})

	_, err := client.FetchFilmDetails(context.Background(), 603)
	require.NoError(t, err)
	_, err = client.FetchFilmDetails(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSearchFilms_ShortQueryMakesNoCall(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	results, err := client.SearchFilms(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Equal(t, 0, calls)
}

func TestSearchFilms_FiltersOrdersAndCaps(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "matrix", r.URL.Query().Get("query"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"page": 1,
			"results": []map[string]interface{}{
				{"id": 1, "title": "low", "release_date": "2001-01-01", "popularity": 1.0},
				{"id": 2, "title": "no date", "release_date": "", "popularity": 100.0},
				{"id": 3, "title": "top", "release_date": "2003-01-01", "popularity": 50.0},
				{"id": 4, "title": "mid", "release_date": "2004-01-01", "popularity": 10.0},
				{"id": 5, "title": "e", "release_date": "2005-01-01", "popularity": 9.0},
				{"id": 6, "title": "f", "release_date": "2006-01-01", "popularity": 8.0},
				{"id": 7, "title": "g", "release_date": "2007-01-01", "popularity": 7.0},
			},
		})
	})

	results, err := client.SearchFilms(context.Background(), "matrix")
	require.NoError(t, err)
	require.Len(t, results, 5)

	// Missing release date dropped, descending popularity, capped at five
	assert.Equal(t, "top", results[0].Title)
	assert.Equal(t, "mid", results[1].Title)
	for _, r := range results {
		assert.NotEqual(t, 2, r.ID)
	}
	assert.Equal(t, 2003, results[0].Year)
}

func TestSearchFilms_UpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.SearchFilms(context.Background(), "matrix")
	assert.Error(t, err)
}

func TestExtractYear(t *testing.T) {
	assert.Equal(t, 1999, extractYear("1999-03-31"))
	assert.Equal(t, 0, extractYear("not-a-date"))
	assert.Equal(t, 0, extractYear(""))
}
