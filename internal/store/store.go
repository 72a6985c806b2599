// Package store holds the two interchangeable data backends: the durable
// sqlite-backed adapter and the in-memory fallback. Both produce the same
// shapes from identical inputs; callers never need to know which one served
// a call.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JaewonYunDS/Filmind/internal/types"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthenticated is returned by writes that require an identity.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrProfileMissing indicates a provisioning inconsistency: the auth
	// identity exists but its profile row could not be found or created.
	// Callers should suggest re-authentication rather than a retry.
	ErrProfileMissing = errors.New("user profile missing")

	// ErrCounterUpdate marks a failed denormalized counter update. The
	// primary row was written and is kept; the counter can be retried or
	// reconciled from a live count.
	ErrCounterUpdate = errors.New("counter update failed")
)

// ForumStore covers forums, threads, comments and voting.
type ForumStore interface {
	ListForums(ctx context.Context) ([]types.Forum, error)
	CreateForum(ctx context.Context, actor types.Identity, title, description string) (*types.Forum, error)

	ListThreads(ctx context.Context, forumID int) ([]types.Thread, error)
	GetThread(ctx context.Context, threadID int) (*types.Thread, error)
	CreateThread(ctx context.Context, actor types.Identity, forumID int, title, content string) (*types.Thread, error)

	ListComments(ctx context.Context, threadID int) ([]types.Comment, error)
	CreateComment(ctx context.Context, actor types.Identity, threadID int, parentID *int, content string) (*types.Comment, error)

	// Vote applies the toggle rule and returns the net delta applied to the
	// votable's counter: same direction again retracts (-1/+1), the opposite
	// direction flips (+2/-2), a first vote counts +1/-1.
	Vote(ctx context.Context, actor types.Identity, votable types.VotableType, id int, direction types.VoteDirection) (int, error)

	// UserVote reports the actor's current vote on an item, or "" if none.
	UserVote(ctx context.Context, actor types.Identity, votable types.VotableType, id int) (types.VoteDirection, error)
}

// TrackerStore covers per-user watched entries and reviews.
type TrackerStore interface {
	// ToggleWatched removes the entry if present and inserts it if absent.
	// Reports whether the film is watched after the call.
	ToggleWatched(ctx context.Context, actor types.Identity, film *types.Film) (bool, error)

	// SaveReview upserts the (user, film) review; saving again replaces the
	// prior rating and text, never creating a duplicate.
	SaveReview(ctx context.Context, actor types.Identity, film *types.Film, rating int, text string) (*types.Review, error)

	WatchedMovies(ctx context.Context, userID uuid.UUID) ([]types.WatchedEntry, error)
	Reviews(ctx context.Context, userID uuid.UUID) ([]types.Review, error)

	// MovieUserData fetches the watched flag and review for one film. The
	// two reads are issued concurrently.
	MovieUserData(ctx context.Context, userID uuid.UUID, movieID int) (bool, *types.Review, error)
}

// Store is the full capability surface shared by both backends.
type Store interface {
	ForumStore
	TrackerStore
}

// Selector picks the backend for a call: the durable store when a live
// session exists and the store is confirmed reachable, the in-memory
// fallback otherwise.
type Selector struct {
	remote *Resilient
	local  *Local
}

func NewSelector(remote *Resilient, local *Local) *Selector {
	return &Selector{remote: remote, local: local}
}

// Pick returns the backend and the effective identity for an actor. A nil
// actor is a guest and always lands on the local store.
func (s *Selector) Pick(actor *types.Identity) (Store, types.Identity) {
	if actor != nil && s.remote != nil && s.remote.Available() {
		return s.remote, *actor
	}
	if actor != nil {
		return s.local, *actor
	}
	return s.local, GuestIdentity()
}

// Local returns the fallback store, for reset on sign-out.
func (s *Selector) Local() *Local { return s.local }

// RemoteAvailable reports whether the durable store is currently usable.
func (s *Selector) RemoteAvailable() bool {
	return s.remote != nil && s.remote.Available()
}

// GuestIdentity is the single local voter slot used when no authenticated
// identity exists.
func GuestIdentity() types.Identity {
	return types.Identity{Username: "guest", DisplayName: "Guest"}
}
