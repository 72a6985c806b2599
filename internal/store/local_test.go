package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaewonYunDS/Filmind/internal/types"
)

func newTestLocal(t *testing.T) (*Local, types.Identity) {
	t.Helper()
	return NewLocal(), GuestIdentity()
}

func TestLocal_ForumIDAllocation(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	for i, title := range []string{"first", "second", "third"} {
		forum, err := local.CreateForum(ctx, guest, title, "")
		require.NoError(t, err)
		assert.Equal(t, i+1, forum.ID)
	}

	forums, err := local.ListForums(ctx)
	require.NoError(t, err)
	require.Len(t, forums, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{forums[0].ID, forums[1].ID, forums[2].ID})
}

func TestLocal_CreateForumDefaultsDescription(t *testing.T) {
	local, guest := newTestLocal(t)

	forum, err := local.CreateForum(context.Background(), guest, "Untitled", "")
	require.NoError(t, err)
	assert.Equal(t, "No description provided", forum.Description)
}

func TestLocal_ThreadAndCommentCounters(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	forum, err := local.CreateForum(ctx, guest, "General", "talk")
	require.NoError(t, err)

	thread, err := local.CreateThread(ctx, guest, forum.ID, "Hello", "first post")
	require.NoError(t, err)

	_, err = local.CreateComment(ctx, guest, thread.ID, nil, "welcome")
	require.NoError(t, err)

	forums, err := local.ListForums(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, forums[0].ThreadCount)
	assert.Equal(t, 1, forums[0].PostCount)

	got, err := local.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)
}

func TestLocal_CreateThreadUnknownForum(t *testing.T) {
	local, guest := newTestLocal(t)

	_, err := local.CreateThread(context.Background(), guest, 42, "nope", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_VoteToggle(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	forum, err := local.CreateForum(ctx, guest, "General", "")
	require.NoError(t, err)
	thread, err := local.CreateThread(ctx, guest, forum.ID, "Votes", "content")
	require.NoError(t, err)

	// First vote counts +1
	delta, err := local.Vote(ctx, guest, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)

	got, _ := local.GetThread(ctx, thread.ID)
	assert.Equal(t, 1, got.Votes)

	// Same direction again retracts
	delta, err = local.Vote(ctx, guest, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)

	got, _ = local.GetThread(ctx, thread.ID)
	assert.Equal(t, 0, got.Votes)

	vote, err := local.UserVote(ctx, guest, types.VotableThread, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, vote)
}

func TestLocal_VoteFlip(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	forum, err := local.CreateForum(ctx, guest, "General", "")
	require.NoError(t, err)
	thread, err := local.CreateThread(ctx, guest, forum.ID, "Votes", "content")
	require.NoError(t, err)

	_, err = local.Vote(ctx, guest, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)

	// Opposite direction flips by exactly -2
	delta, err := local.Vote(ctx, guest, types.VotableThread, thread.ID, types.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -2, delta)

	got, _ := local.GetThread(ctx, thread.ID)
	assert.Equal(t, -1, got.Votes)

	vote, err := local.UserVote(ctx, guest, types.VotableThread, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VoteDown, vote)
}

func TestLocal_VoteOnComment(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	forum, _ := local.CreateForum(ctx, guest, "General", "")
	thread, _ := local.CreateThread(ctx, guest, forum.ID, "T", "c")
	comment, err := local.CreateComment(ctx, guest, thread.ID, nil, "hi")
	require.NoError(t, err)

	delta, err := local.Vote(ctx, guest, types.VotableComment, comment.ID, types.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)

	comments, err := local.ListComments(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, -1, comments[0].Votes)
}

func TestLocal_VoteUnknownItem(t *testing.T) {
	local, guest := newTestLocal(t)

	_, err := local.Vote(context.Background(), guest, types.VotableThread, 99, types.VoteUp)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_WatchedToggle(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()
	film := &types.Film{ID: 603, Title: "The Matrix", Year: 1999}

	watched, err := local.ToggleWatched(ctx, guest, film)
	require.NoError(t, err)
	assert.True(t, watched)

	watched, err = local.ToggleWatched(ctx, guest, film)
	require.NoError(t, err)
	assert.False(t, watched)

	entries, err := local.WatchedMovies(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocal_ReviewUpsert(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()
	film := &types.Film{ID: 603, Title: "The Matrix", Year: 1999}

	_, err := local.SaveReview(ctx, guest, film, 4, "good")
	require.NoError(t, err)

	review, err := local.SaveReview(ctx, guest, film, 5, "great on rewatch")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)

	reviews, err := local.Reviews(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.Equal(t, "great on rewatch", reviews[0].Text)
}

func TestLocal_MovieUserData(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()
	film := &types.Film{ID: 603, Title: "The Matrix"}

	watched, review, err := local.MovieUserData(ctx, guest.ID, film.ID)
	require.NoError(t, err)
	assert.False(t, watched)
	assert.Nil(t, review)

	_, err = local.ToggleWatched(ctx, guest, film)
	require.NoError(t, err)
	_, err = local.SaveReview(ctx, guest, film, 3, "fine")
	require.NoError(t, err)

	watched, review, err = local.MovieUserData(ctx, guest.ID, film.ID)
	require.NoError(t, err)
	assert.True(t, watched)
	require.NotNil(t, review)
	assert.Equal(t, 3, review.Rating)
}

func TestLocal_ResetUserDataKeepsForumContent(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	forum, _ := local.CreateForum(ctx, guest, "General", "")
	thread, _ := local.CreateThread(ctx, guest, forum.ID, "T", "c")
	_, err := local.Vote(ctx, guest, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)
	_, err = local.ToggleWatched(ctx, guest, &types.Film{ID: 1, Title: "F"})
	require.NoError(t, err)
	_, err = local.SaveReview(ctx, guest, &types.Film{ID: 1, Title: "F"}, 4, "")
	require.NoError(t, err)

	local.ResetUserData()

	vote, err := local.UserVote(ctx, guest, types.VotableThread, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, vote)

	entries, _ := local.WatchedMovies(ctx, guest.ID)
	assert.Empty(t, entries)
	reviews, _ := local.Reviews(ctx, guest.ID)
	assert.Empty(t, reviews)

	// Forum content survives, including its counters
	forums, err := local.ListForums(ctx)
	require.NoError(t, err)
	require.Len(t, forums, 1)
	assert.Equal(t, 1, forums[0].ThreadCount)
	got, err := local.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	// Vote counters are not rolled back by the reset
	assert.Equal(t, 1, got.Votes)
}

func TestLocal_SeedIsIdempotent(t *testing.T) {
	local, _ := newTestLocal(t)

	local.Seed()
	local.Seed()

	forums, err := local.ListForums(context.Background())
	require.NoError(t, err)
	assert.Len(t, forums, 3)
}

func TestLocal_ThreadOrderingNewestFirst(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	forum, _ := local.CreateForum(ctx, guest, "General", "")
	first, _ := local.CreateThread(ctx, guest, forum.ID, "first", "a")
	second, _ := local.CreateThread(ctx, guest, forum.ID, "second", "b")

	threads, err := local.ListThreads(ctx, forum.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, second.ID, threads[0].ID)
	assert.Equal(t, first.ID, threads[1].ID)
}

func TestLocal_FailedVoteLeavesNoLedgerEntry(t *testing.T) {
	local, guest := newTestLocal(t)
	ctx := context.Background()

	// Vote on an id that does not exist yet
	_, err := local.Vote(ctx, guest, types.VotableThread, 1, types.VoteUp)
	require.ErrorIs(t, err, ErrNotFound)

	forum, err := local.CreateForum(ctx, guest, "General", "")
	require.NoError(t, err)
	thread, err := local.CreateThread(ctx, guest, forum.ID, "First", "hello")
	require.NoError(t, err)
	require.Equal(t, 1, thread.ID)

	// The thread now holding that id must start with a clean slate: the
	// first up-vote counts +1, not a retraction of the failed vote.
	delta, err := local.Vote(ctx, guest, types.VotableThread, thread.ID, types.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)

	got, err := local.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Votes)

	vote, err := local.UserVote(ctx, guest, types.VotableThread, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VoteUp, vote)
}
