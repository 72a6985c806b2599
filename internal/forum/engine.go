// Package forum orchestrates discussion boards over whichever data backend
// the selector picks for the caller.
package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaewonYunDS/Filmind/internal/logging"
	"github.com/JaewonYunDS/Filmind/internal/store"
	"github.com/JaewonYunDS/Filmind/internal/types"
)

type Engine struct {
	selector *store.Selector
}

func NewEngine(selector *store.Selector) *Engine {
	return &Engine{selector: selector}
}

// ThreadView is a thread with its comment tree and the caller's vote state.
type ThreadView struct {
	Thread   types.Thread        `json:"thread"`
	Comments []*CommentNode      `json:"comments"`
	UserVote types.VoteDirection `json:"user_vote,omitempty"`
}

func (e *Engine) ListForums(ctx context.Context, actor *types.Identity) ([]types.Forum, error) {
	backend, _ := e.selector.Pick(actor)
	return backend.ListForums(ctx)
}

func (e *Engine) CreateForum(ctx context.Context, actor *types.Identity, req types.CreateForumRequest) (*types.Forum, error) {
	backend, identity := e.selector.Pick(actor)
	return backend.CreateForum(ctx, identity, req.Title, req.Description)
}

func (e *Engine) ListThreads(ctx context.Context, actor *types.Identity, forumID int) ([]types.Thread, error) {
	backend, _ := e.selector.Pick(actor)
	return backend.ListThreads(ctx, forumID)
}

func (e *Engine) CreateThread(ctx context.Context, actor *types.Identity, forumID int, req types.CreateThreadRequest) (*types.Thread, error) {
	backend, identity := e.selector.Pick(actor)
	thread, err := backend.CreateThread(ctx, identity, forumID, req.Title, req.Content)
	if errors.Is(err, store.ErrCounterUpdate) {
		// The thread itself landed; the stale counter is fixed by the next
		// reconciliation pass.
		logging.L().Warn().Err(err).Int("forum_id", forumID).
			Msg("thread created but forum counter update failed")
		return thread, nil
	}
	return thread, err
}

// GetThreadView loads a thread, its assembled comment tree, and the
// caller's current vote in one call.
func (e *Engine) GetThreadView(ctx context.Context, actor *types.Identity, threadID int) (*ThreadView, error) {
	backend, identity := e.selector.Pick(actor)

	thread, err := backend.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	comments, err := backend.ListComments(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments for thread %d: %w", threadID, err)
	}
	vote, err := backend.UserVote(ctx, identity, types.VotableThread, threadID)
	if err != nil {
		return nil, err
	}

	return &ThreadView{
		Thread:   *thread,
		Comments: BuildCommentTree(comments),
		UserVote: vote,
	}, nil
}

func (e *Engine) CreateComment(ctx context.Context, actor *types.Identity, threadID int, req types.CreateCommentRequest) (*types.Comment, error) {
	backend, identity := e.selector.Pick(actor)
	comment, err := backend.CreateComment(ctx, identity, threadID, req.ParentID, req.Content)
	if errors.Is(err, store.ErrCounterUpdate) {
		logging.L().Warn().Err(err).Int("thread_id", threadID).
			Msg("comment created but counter update failed")
		return comment, nil
	}
	return comment, err
}

// Vote applies the toggle rule and returns the net delta plus the caller's
// vote state after the call.
func (e *Engine) Vote(ctx context.Context, actor *types.Identity, votable types.VotableType, id int, direction types.VoteDirection) (int, types.VoteDirection, error) {
	backend, identity := e.selector.Pick(actor)
	delta, err := backend.Vote(ctx, identity, votable, id, direction)
	if err != nil {
		return 0, "", err
	}
	current, err := backend.UserVote(ctx, identity, votable, id)
	if err != nil {
		return delta, "", err
	}
	return delta, current, nil
}
