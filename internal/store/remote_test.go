package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaewonYunDS/Filmind/internal/database"
	"github.com/JaewonYunDS/Filmind/internal/types"
)

func newTestRemote(t *testing.T) *Remote {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db))
	return NewRemote(db)
}

func testIdentity(username string) types.Identity {
	return types.Identity{
		ID:          uuid.New(),
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
}

func TestRemote_ProfileCreatedOnFirstWrite(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")

	_, err := remote.CreateForum(ctx, alice, "General", "talk")
	require.NoError(t, err)

	profile, err := remote.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice", profile.DisplayName)
}

func TestRemote_ProfileUsernameFallsBackToEmail(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()

	actor := types.Identity{ID: uuid.New(), Email: "bob@example.com"}
	_, err := remote.CreateForum(ctx, actor, "General", "")
	require.NoError(t, err)

	profile, err := remote.GetProfile(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Username)
}

func TestRemote_WriteWithoutIdentity(t *testing.T) {
	remote := newTestRemote(t)

	_, err := remote.CreateForum(context.Background(), types.Identity{}, "General", "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRemote_ThreadAndCommentCounters(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")

	forum, err := remote.CreateForum(ctx, alice, "General", "")
	require.NoError(t, err)

	thread, err := remote.CreateThread(ctx, alice, forum.ID, "Hello", "first")
	require.NoError(t, err)

	parent, err := remote.CreateComment(ctx, alice, thread.ID, nil, "top")
	require.NoError(t, err)
	_, err = remote.CreateComment(ctx, alice, thread.ID, &parent.ID, "reply")
	require.NoError(t, err)

	forums, err := remote.ListForums(ctx)
	require.NoError(t, err)
	require.Len(t, forums, 1)
	assert.Equal(t, 1, forums[0].ThreadCount)
	assert.Equal(t, 2, forums[0].PostCount)

	got, err := remote.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)
}

func TestRemote_CommentParentMustBelongToThread(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")

	forum, _ := remote.CreateForum(ctx, alice, "General", "")
	threadA, err := remote.CreateThread(ctx, alice, forum.ID, "A", "a")
	require.NoError(t, err)
	threadB, err := remote.CreateThread(ctx, alice, forum.ID, "B", "b")
	require.NoError(t, err)

	comment, err := remote.CreateComment(ctx, alice, threadA.ID, nil, "on A")
	require.NoError(t, err)

	_, err = remote.CreateComment(ctx, alice, threadB.ID, &comment.ID, "wrong thread")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemote_VoteToggleAndFlip(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")

	forum, _ := remote.CreateForum(ctx, alice, "General", "")
	thread, err := remote.CreateThread(ctx, alice, forum.ID, "Votes", "c")
	require.NoError(t, err)

	delta, err := remote.Vote(ctx, alice, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)

	// Flip is a single -2 adjustment
	delta, err = remote.Vote(ctx, alice, types.VotableThread, thread.ID, types.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -2, delta)

	got, err := remote.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, got.Votes)

	// Retraction restores the pre-vote value
	delta, err = remote.Vote(ctx, alice, types.VotableThread, thread.ID, types.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)

	got, err = remote.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Votes)

	vote, err := remote.UserVote(ctx, alice, types.VotableThread, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, vote)
}

func TestRemote_VotesAreIndependentPerUser(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")
	bob := testIdentity("bob")

	forum, _ := remote.CreateForum(ctx, alice, "General", "")
	thread, _ := remote.CreateThread(ctx, alice, forum.ID, "Votes", "c")

	_, err := remote.Vote(ctx, alice, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)
	_, err = remote.Vote(ctx, bob, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)

	got, err := remote.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Votes)

	vote, err := remote.UserVote(ctx, bob, types.VotableThread, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VoteUp, vote)
}

func TestRemote_WatchedToggle(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")
	film := &types.Film{ID: 603, Title: "The Matrix", Year: 1999, Poster: "p"}

	watched, err := remote.ToggleWatched(ctx, alice, film)
	require.NoError(t, err)
	assert.True(t, watched)

	entries, err := remote.WatchedMovies(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "The Matrix", entries[0].Title)
	assert.Equal(t, 1999, entries[0].Year)

	watched, err = remote.ToggleWatched(ctx, alice, film)
	require.NoError(t, err)
	assert.False(t, watched)

	entries, err = remote.WatchedMovies(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemote_ReviewUpsert(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")
	film := &types.Film{ID: 603, Title: "The Matrix", Year: 1999}

	first, err := remote.SaveReview(ctx, alice, film, 4, "good")
	require.NoError(t, err)
	assert.Equal(t, 4, first.Rating)

	second, err := remote.SaveReview(ctx, alice, film, 5, "better")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Rating)

	reviews, err := remote.Reviews(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "better", reviews[0].Text)
}

func TestRemote_SaveReviewMarksWatched(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")
	film := &types.Film{ID: 603, Title: "The Matrix"}

	_, err := remote.SaveReview(ctx, alice, film, 5, "")
	require.NoError(t, err)

	watched, review, err := remote.MovieUserData(ctx, alice.ID, film.ID)
	require.NoError(t, err)
	assert.True(t, watched)
	require.NotNil(t, review)
	assert.Equal(t, 5, review.Rating)
}

func TestRemote_ReconcileCounters(t *testing.T) {
	remote := newTestRemote(t)
	ctx := context.Background()
	alice := testIdentity("alice")

	forum, _ := remote.CreateForum(ctx, alice, "General", "")
	thread, _ := remote.CreateThread(ctx, alice, forum.ID, "T", "c")
	_, err := remote.CreateComment(ctx, alice, thread.ID, nil, "hi")
	require.NoError(t, err)
	_, err = remote.Vote(ctx, alice, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)

	// Inject drift, then reconcile from live counts
	_, err = remote.db.Exec("UPDATE forums SET thread_count = 99, post_count = 99")
	require.NoError(t, err)
	_, err = remote.db.Exec("UPDATE threads SET comment_count = 99, votes = 99")
	require.NoError(t, err)

	require.NoError(t, remote.ReconcileCounters(ctx))

	forums, err := remote.ListForums(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, forums[0].ThreadCount)
	assert.Equal(t, 1, forums[0].PostCount)

	got, err := remote.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)
	assert.Equal(t, 1, got.Votes)
}

func TestRemote_GetThreadNotFound(t *testing.T) {
	remote := newTestRemote(t)

	_, err := remote.GetThread(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
