package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JaewonYunDS/Filmind/internal/catalog"
	"github.com/JaewonYunDS/Filmind/internal/logging"
	"github.com/JaewonYunDS/Filmind/internal/store"
	"github.com/JaewonYunDS/Filmind/internal/types"
)

// PlexImporter imports a Plex library's watched movies into the user's
// watched list. Each watched item is matched against the catalog by title
// and year; items that cannot be matched are counted as failed but do not
// abort the import.
type PlexImporter struct {
	plex     *PlexClient
	catalog  *catalog.Client
	selector *store.Selector
	manager  *JobManager
}

func NewPlexImporter(plex *PlexClient, catalog *catalog.Client, selector *store.Selector, manager *JobManager) *PlexImporter {
	return &PlexImporter{
		plex:     plex,
		catalog:  catalog,
		selector: selector,
		manager:  manager,
	}
}

func (p *PlexImporter) GetJobType() JobType {
	return JobTypePlexImport
}

func (p *PlexImporter) ProcessJob(ctx context.Context, job *Job) error {
	token, _ := job.Metadata["plex_token"].(string)
	serverURL, _ := job.Metadata["server_url"].(string)
	libraryKey := 0
	if v, ok := job.Metadata["library_key"].(float64); ok {
		libraryKey = int(v)
	}
	if token == "" || serverURL == "" || libraryKey == 0 {
		return fmt.Errorf("job %d is missing plex connection metadata", job.ID)
	}

	userID, err := uuid.Parse(job.UserID)
	if err != nil {
		return fmt.Errorf("job %d has invalid user id %q: %w", job.ID, job.UserID, err)
	}
	actor := types.Identity{ID: userID}
	if v, ok := job.Metadata["username"].(string); ok {
		actor.Username = v
		actor.DisplayName = v
	}
	if v, ok := job.Metadata["email"].(string); ok {
		actor.Email = v
	}

	p.manager.UpdateJobProgress(job.ID, 0, "Fetching Plex library", 0, 0, 0)

	movies, err := p.plex.GetMoviesInLibrary(ctx, token, serverURL, libraryKey)
	if err != nil {
		return fmt.Errorf("failed to list plex library %d: %w", libraryKey, err)
	}

	var watched []PlexMovie
	for _, movie := range movies {
		if movie.Watched {
			watched = append(watched, movie)
		}
	}
	p.manager.SetJobTotals(job.ID, len(watched))

	backend, identity := p.selector.Pick(&actor)

	var processed, successful, failed int
	for _, movie := range watched {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		imported, err := p.importMovie(ctx, backend, identity, movie)
		processed++
		if err != nil {
			failed++
			logging.L().Warn().Err(err).Str("title", movie.Title).Msg("failed to import plex movie")
		} else if imported {
			successful++
		}

		progress := 0
		if len(watched) > 0 {
			progress = processed * 100 / len(watched)
		}
		p.manager.UpdateJobProgress(job.ID, progress,
			fmt.Sprintf("Importing %s", movie.Title),
			processed, successful, failed)
	}

	logging.L().Info().
		Int64("job_id", job.ID).
		Int("successful", successful).
		Int("failed", failed).
		Msg("plex import finished")
	return nil
}

// importMovie matches one Plex item to the catalog and marks it watched.
// Returns false without error when the movie is already on the watched list
// or no catalog match exists.
func (p *PlexImporter) importMovie(ctx context.Context, backend store.Store, actor types.Identity, movie PlexMovie) (bool, error) {
	match, err := p.matchCatalog(ctx, movie)
	if err != nil {
		return false, err
	}
	if match == nil {
		return false, nil
	}

	alreadyWatched, _, err := backend.MovieUserData(ctx, actor.ID, match.ID)
	if err != nil {
		return false, err
	}
	if alreadyWatched {
		return false, nil
	}

	if _, err := backend.ToggleWatched(ctx, actor, match); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PlexImporter) matchCatalog(ctx context.Context, movie PlexMovie) (*types.Film, error) {
	results, err := p.catalog.SearchFilms(ctx, movie.Title)
	if err != nil {
		return nil, fmt.Errorf("catalog search for %q failed: %w", movie.Title, err)
	}

	for _, result := range results {
		if !titleMatches(result.Title, movie.Title) {
			continue
		}
		if movie.Year != nil && result.Year != 0 && result.Year != *movie.Year {
			continue
		}
		return p.catalog.FetchFilmDetails(ctx, result.ID)
	}
	return nil, nil
}

// titleMatches compares titles case-insensitively, tolerating suffixes like
// a trailing year.
func titleMatches(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
