package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/JaewonYunDS/Filmind/internal/logging"
	"github.com/JaewonYunDS/Filmind/internal/types"
)

// Resilient wraps the durable store in a circuit breaker. After a run of
// failures the breaker opens, the selector stops routing to the durable
// store, and traffic lands on the in-memory fallback until a probe in the
// half-open state succeeds.
type Resilient struct {
	store   *Remote
	breaker *gobreaker.CircuitBreaker[any]
}

func NewResilient(store *Remote) *Resilient {
	settings := gobreaker.Settings{
		Name:        "durable-store",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.L().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("durable store breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// Domain errors are valid responses, not store outages.
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrNotAuthenticated) ||
				errors.Is(err, ErrCounterUpdate)
		},
	}
	return &Resilient{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Available reports whether calls are currently allowed through.
func (r *Resilient) Available() bool {
	return r.breaker.State() != gobreaker.StateOpen
}

func execute[T any](r *Resilient, fn func() (T, error)) (T, error) {
	result, err := r.breaker.Execute(func() (any, error) {
		return fn()
	})
	// A counter-update failure still carries the committed row, so keep the
	// result whenever the call produced one.
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, err
	}
	return typed, err
}

func (r *Resilient) ListForums(ctx context.Context) ([]types.Forum, error) {
	return execute(r, func() ([]types.Forum, error) {
		return r.store.ListForums(ctx)
	})
}

func (r *Resilient) CreateForum(ctx context.Context, actor types.Identity, title, description string) (*types.Forum, error) {
	return execute(r, func() (*types.Forum, error) {
		return r.store.CreateForum(ctx, actor, title, description)
	})
}

func (r *Resilient) ListThreads(ctx context.Context, forumID int) ([]types.Thread, error) {
	return execute(r, func() ([]types.Thread, error) {
		return r.store.ListThreads(ctx, forumID)
	})
}

func (r *Resilient) GetThread(ctx context.Context, threadID int) (*types.Thread, error) {
	return execute(r, func() (*types.Thread, error) {
		return r.store.GetThread(ctx, threadID)
	})
}

func (r *Resilient) CreateThread(ctx context.Context, actor types.Identity, forumID int, title, content string) (*types.Thread, error) {
	return execute(r, func() (*types.Thread, error) {
		return r.store.CreateThread(ctx, actor, forumID, title, content)
	})
}

func (r *Resilient) ListComments(ctx context.Context, threadID int) ([]types.Comment, error) {
	return execute(r, func() ([]types.Comment, error) {
		return r.store.ListComments(ctx, threadID)
	})
}

func (r *Resilient) CreateComment(ctx context.Context, actor types.Identity, threadID int, parentID *int, content string) (*types.Comment, error) {
	return execute(r, func() (*types.Comment, error) {
		return r.store.CreateComment(ctx, actor, threadID, parentID, content)
	})
}

func (r *Resilient) Vote(ctx context.Context, actor types.Identity, votable types.VotableType, id int, direction types.VoteDirection) (int, error) {
	return execute(r, func() (int, error) {
		return r.store.Vote(ctx, actor, votable, id, direction)
	})
}

func (r *Resilient) UserVote(ctx context.Context, actor types.Identity, votable types.VotableType, id int) (types.VoteDirection, error) {
	return execute(r, func() (types.VoteDirection, error) {
		return r.store.UserVote(ctx, actor, votable, id)
	})
}

func (r *Resilient) ToggleWatched(ctx context.Context, actor types.Identity, film *types.Film) (bool, error) {
	return execute(r, func() (bool, error) {
		return r.store.ToggleWatched(ctx, actor, film)
	})
}

func (r *Resilient) SaveReview(ctx context.Context, actor types.Identity, film *types.Film, rating int, text string) (*types.Review, error) {
	return execute(r, func() (*types.Review, error) {
		return r.store.SaveReview(ctx, actor, film, rating, text)
	})
}

func (r *Resilient) WatchedMovies(ctx context.Context, userID uuid.UUID) ([]types.WatchedEntry, error) {
	return execute(r, func() ([]types.WatchedEntry, error) {
		return r.store.WatchedMovies(ctx, userID)
	})
}

func (r *Resilient) Reviews(ctx context.Context, userID uuid.UUID) ([]types.Review, error) {
	return execute(r, func() ([]types.Review, error) {
		return r.store.Reviews(ctx, userID)
	})
}

func (r *Resilient) MovieUserData(ctx context.Context, userID uuid.UUID, movieID int) (bool, *types.Review, error) {
	type pair struct {
		watched bool
		review  *types.Review
	}
	result, err := execute(r, func() (pair, error) {
		watched, review, err := r.store.MovieUserData(ctx, userID, movieID)
		return pair{watched, review}, err
	})
	if err != nil {
		return false, nil, err
	}
	return result.watched, result.review, nil
}

// GetProfile passes through to the durable store; profile reads are only
// meaningful when the store is the active backend.
func (r *Resilient) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	return execute(r, func() (*types.Profile, error) {
		return r.store.GetProfile(ctx, userID)
	})
}
