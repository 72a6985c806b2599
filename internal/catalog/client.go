// Package catalog fetches and normalizes film metadata from TMDB.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JaewonYunDS/Filmind/internal/types"
)

const (
	imageBaseURL = "https://image.tmdb.org/t/p/w500"

	// DefaultPoster is used when the catalog record carries no poster path.
	DefaultPoster = "https://via.placeholder.com/300x450/333/fff?text=No+Image"

	// maxSearchResults caps live search results.
	maxSearchResults = 5

	// minQueryLength below which search issues no call.
	minQueryLength = 2
)

// Client is a TMDB API client. Successful detail lookups are memoized by id
// for the process lifetime; catalog entries are immutable reference data so
// the cache is never invalidated.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	cache map[int]*types.Film
}

// TMDB API response types

type tmdbSearchResponse struct {
	Page    int         `json:"page"`
	Results []tmdbMovie `json:"results"`
}

type tmdbMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
}

type tmdbMovieDetails struct {
	tmdbMovie
	Runtime int         `json:"runtime"`
	Genres  []tmdbGenre `json:"genres"`
	Credits tmdbCredits `json:"credits"`
}

type tmdbGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tmdbCredits struct {
	Cast []tmdbCastMember `json:"cast"`
	Crew []tmdbCrewMember `json:"crew"`
}

type tmdbCastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

type tmdbCrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		// TMDB allows 50 requests per 10 seconds; stay at 40 to be conservative.
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 40),
		cache:   make(map[int]*types.Film),
	}
}

func (c *Client) makeRequest(ctx context.Context, endpoint string, params map[string]string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	query := u.Query()
	query.Set("api_key", c.apiKey)

	for key, value := range params {
		query.Set(key, value)
	}

	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	return resp, nil
}

// FetchFilmDetails looks up a film by id and normalizes it. Records without
// a release date are not real releases and yield (nil, nil). Callers must
// treat a nil film as "no such film", not as a fatal error.
func (c *Client) FetchFilmDetails(ctx context.Context, id int) (*types.Film, error) {
	c.mu.Lock()
	if film, ok := c.cache[id]; ok {
		c.mu.Unlock()
		return film, nil
	}
	c.mu.Unlock()

	endpoint := fmt.Sprintf("/movie/%d", id)
	resp, err := c.makeRequest(ctx, endpoint, map[string]string{
		"append_to_response": "credits",
	})
	if err != nil {
		return nil, fmt.Errorf("movie details request failed: %w", err)
	}
	defer resp.Body.Close()

	var details tmdbMovieDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode movie details: %w", err)
	}

	if strings.TrimSpace(details.ReleaseDate) == "" {
		return nil, nil
	}

	film := normalizeFilm(&details)

	c.mu.Lock()
	c.cache[id] = film
	c.mu.Unlock()

	return film, nil
}

// SearchFilms performs a live search. Queries shorter than two characters
// yield no call. Entries without a release date are dropped, the rest are
// ordered by descending popularity and capped at five.
func (c *Client) SearchFilms(ctx context.Context, query string) ([]types.FilmSummary, error) {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLength {
		return nil, nil
	}

	resp, err := c.makeRequest(ctx, "/search/movie", map[string]string{
		"query": query,
	})
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	var searchResp tmdbSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	var results []types.FilmSummary
	for _, movie := range searchResp.Results {
		if strings.TrimSpace(movie.ReleaseDate) == "" {
			continue
		}
		results = append(results, types.FilmSummary{
			ID:         movie.ID,
			Title:      movie.Title,
			Year:       extractYear(movie.ReleaseDate),
			Poster:     posterURL(movie.PosterPath),
			Popularity: movie.Popularity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Popularity > results[j].Popularity
	})

	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	return results, nil
}

func normalizeFilm(details *tmdbMovieDetails) *types.Film {
	director := "Unknown"
	for _, member := range details.Credits.Crew {
		if member.Job == "Director" {
			director = member.Name
			break
		}
	}

	genres := make([]string, len(details.Genres))
	for i, genre := range details.Genres {
		genres[i] = genre.Name
	}

	rating := "N/A"
	if details.VoteAverage > 0 {
		rating = strconv.FormatFloat(details.VoteAverage, 'f', 1, 64)
	}

	overview := details.Overview
	if overview == "" {
		overview = "No overview available."
	}

	cast := make([]types.CastMember, len(details.Credits.Cast))
	for i, member := range details.Credits.Cast {
		cast[i] = types.CastMember{Name: member.Name, Character: member.Character}
	}

	return &types.Film{
		ID:       details.ID,
		Title:    details.Title,
		Year:     extractYear(details.ReleaseDate),
		Director: director,
		Genres:   genres,
		Runtime:  details.Runtime,
		Rating:   rating,
		Poster:   posterURL(details.PosterPath),
		Overview: overview,
		Cast:     cast,
	}
}

func posterURL(posterPath *string) string {
	if posterPath == nil || *posterPath == "" {
		return DefaultPoster
	}
	return imageBaseURL + *posterPath
}

func extractYear(releaseDate string) int {
	parts := strings.Split(releaseDate, "-")
	if len(parts) == 0 {
		return 0
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return year
}
