package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaewonYunDS/Filmind/internal/types"
)

// Local is the in-memory fallback used when the durable store is
// unreachable or the caller is a guest. All state belongs to the single
// local identity; the vote ledger has one slot per votable item.
type Local struct {
	mu       sync.Mutex
	forums   map[int]*types.Forum
	threads  map[int]*types.Thread
	comments map[int]*types.Comment

	// votes maps "type_id" to the last direction cast by the local voter.
	votes map[string]types.VoteDirection

	watched []types.WatchedEntry
	reviews []types.Review
}

func NewLocal() *Local {
	return &Local{
		forums:   make(map[int]*types.Forum),
		threads:  make(map[int]*types.Thread),
		comments: make(map[int]*types.Comment),
		votes:    make(map[string]types.VoteDirection),
	}
}

// nextID allocates the next identifier for a map keyed by int:
// current max id + 1, or 1 if empty.
func nextID[T any](m map[int]*T) int {
	max := 0
	for id := range m {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func voteKey(votable types.VotableType, id int) string {
	return fmt.Sprintf("%s_%d", votable, id)
}

func (l *Local) ListForums(_ context.Context) ([]types.Forum, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	forums := make([]types.Forum, 0, len(l.forums))
	for _, f := range l.forums {
		forums = append(forums, *f)
	}
	sort.Slice(forums, func(i, j int) bool { return forums[i].ID < forums[j].ID })
	return forums, nil
}

func (l *Local) CreateForum(_ context.Context, actor types.Identity, title, description string) (*types.Forum, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if description == "" {
		description = "No description provided"
	}

	forum := &types.Forum{
		ID:          nextID(l.forums),
		Title:       title,
		Description: description,
		CreatedBy:   actor.DisplayName,
		Created:     time.Now(),
	}
	l.forums[forum.ID] = forum

	out := *forum
	return &out, nil
}

func (l *Local) ListThreads(_ context.Context, forumID int) ([]types.Thread, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var threads []types.Thread
	for _, t := range l.threads {
		if t.ForumID == forumID {
			threads = append(threads, *t)
		}
	}
	// Newest first
	sort.Slice(threads, func(i, j int) bool {
		if threads[i].Created.Equal(threads[j].Created) {
			return threads[i].ID > threads[j].ID
		}
		return threads[i].Created.After(threads[j].Created)
	})
	return threads, nil
}

func (l *Local) GetThread(_ context.Context, threadID int) (*types.Thread, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	thread, ok := l.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *thread
	return &out, nil
}

func (l *Local) CreateThread(_ context.Context, actor types.Identity, forumID int, title, content string) (*types.Thread, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.forums[forumID]; !ok {
		return nil, ErrNotFound
	}

	thread := &types.Thread{
		ID:      nextID(l.threads),
		ForumID: forumID,
		Title:   title,
		Content: content,
		Author:  actor.DisplayName,
		Created: time.Now(),
	}
	l.threads[thread.ID] = thread
	l.forums[forumID].ThreadCount++

	out := *thread
	return &out, nil
}

func (l *Local) ListComments(_ context.Context, threadID int) ([]types.Comment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var comments []types.Comment
	for _, c := range l.comments {
		if c.ThreadID == threadID {
			comments = append(comments, *c)
		}
	}
	// Oldest first
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].Created.Equal(comments[j].Created) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].Created.Before(comments[j].Created)
	})
	return comments, nil
}

func (l *Local) CreateComment(_ context.Context, actor types.Identity, threadID int, parentID *int, content string) (*types.Comment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	thread, ok := l.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	if parentID != nil {
		parent, ok := l.comments[*parentID]
		if !ok || parent.ThreadID != threadID {
			return nil, ErrNotFound
		}
	}

	comment := &types.Comment{
		ID:       nextID(l.comments),
		ThreadID: threadID,
		ParentID: parentID,
		Content:  content,
		Author:   actor.DisplayName,
		Created:  time.Now(),
	}
	l.comments[comment.ID] = comment

	thread.CommentCount++
	if forum, ok := l.forums[thread.ForumID]; ok {
		forum.PostCount++
	}

	out := *comment
	return &out, nil
}

// Vote applies the toggle rule against the single local voter slot and
// adjusts the running counter by the returned delta. The votable must exist
// before the ledger is touched, otherwise a failed vote would leave a ghost
// entry for whichever item is allocated that id next.
func (l *Local) Vote(_ context.Context, _ types.Identity, votable types.VotableType, id int, direction types.VoteDirection) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var counter *int
	switch votable {
	case types.VotableThread:
		thread, ok := l.threads[id]
		if !ok {
			return 0, ErrNotFound
		}
		counter = &thread.Votes
	case types.VotableComment:
		comment, ok := l.comments[id]
		if !ok {
			return 0, ErrNotFound
		}
		counter = &comment.Votes
	default:
		return 0, fmt.Errorf("unknown votable type %q", votable)
	}

	key := voteKey(votable, id)
	current, hasVote := l.votes[key]

	var delta int
	switch {
	case hasVote && current == direction:
		delete(l.votes, key)
		if direction == types.VoteUp {
			delta = -1
		} else {
			delta = 1
		}
	case hasVote:
		l.votes[key] = direction
		if direction == types.VoteUp {
			delta = 2
		} else {
			delta = -2
		}
	default:
		l.votes[key] = direction
		if direction == types.VoteUp {
			delta = 1
		} else {
			delta = -1
		}
	}

	*counter += delta
	return delta, nil
}

func (l *Local) UserVote(_ context.Context, _ types.Identity, votable types.VotableType, id int) (types.VoteDirection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.votes[voteKey(votable, id)], nil
}

func (l *Local) ToggleWatched(_ context.Context, actor types.Identity, film *types.Film) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.watched {
		if entry.MovieID == film.ID {
			l.watched = append(l.watched[:i], l.watched[i+1:]...)
			return false, nil
		}
	}

	l.watched = append(l.watched, types.WatchedEntry{
		ID:      len(l.watched) + 1,
		UserID:  actor.ID,
		MovieID: film.ID,
		Title:   film.Title,
		Year:    film.Year,
		Poster:  film.Poster,
		Watched: time.Now(),
	})
	return true, nil
}

func (l *Local) SaveReview(_ context.Context, actor types.Identity, film *types.Film, rating int, text string) (*types.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	review := types.Review{
		ID:      len(l.reviews) + 1,
		UserID:  actor.ID,
		MovieID: film.ID,
		Title:   film.Title,
		Year:    film.Year,
		Poster:  film.Poster,
		Rating:  rating,
		Text:    text,
		Created: now,
		Updated: now,
	}

	// Replace any prior review for this film, newest first
	kept := l.reviews[:0]
	for _, r := range l.reviews {
		if r.MovieID != film.ID {
			kept = append(kept, r)
		} else {
			review.Created = r.Created
		}
	}
	l.reviews = append([]types.Review{review}, kept...)

	// Reviewing a film implies having watched it.
	alreadyWatched := false
	for _, entry := range l.watched {
		if entry.MovieID == film.ID {
			alreadyWatched = true
			break
		}
	}
	if !alreadyWatched {
		l.watched = append(l.watched, types.WatchedEntry{
			ID:      len(l.watched) + 1,
			UserID:  actor.ID,
			MovieID: film.ID,
			Title:   film.Title,
			Year:    film.Year,
			Poster:  film.Poster,
			Watched: now,
		})
	}

	out := review
	return &out, nil
}

func (l *Local) WatchedMovies(_ context.Context, _ uuid.UUID) ([]types.WatchedEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.WatchedEntry, len(l.watched))
	copy(out, l.watched)
	sort.Slice(out, func(i, j int) bool { return out[i].Watched.After(out[j].Watched) })
	return out, nil
}

func (l *Local) Reviews(_ context.Context, _ uuid.UUID) ([]types.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.Review, len(l.reviews))
	copy(out, l.reviews)
	return out, nil
}

func (l *Local) MovieUserData(_ context.Context, _ uuid.UUID, movieID int) (bool, *types.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	watched := false
	for _, entry := range l.watched {
		if entry.MovieID == movieID {
			watched = true
			break
		}
	}

	for _, r := range l.reviews {
		if r.MovieID == movieID {
			review := r
			return watched, &review, nil
		}
	}
	return watched, nil, nil
}

// ResetUserData clears the user-scoped state (watched films, reviews, vote
// ledger) on sign-out. Forum content and its counters are kept.
func (l *Local) ResetUserData() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.votes = make(map[string]types.VoteDirection)
	l.watched = nil
	l.reviews = nil
}

// Seed populates the fallback with starter forums so the community pages
// are not empty in local mode. No-op if forums already exist.
func (l *Local) Seed() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.forums) > 0 {
		return
	}

	now := time.Now()
	forums := []*types.Forum{
		{ID: 1, Title: "General Discussion", Description: "General movie discussions and recommendations", CreatedBy: "Admin", Created: now},
		{ID: 2, Title: "New Releases", Description: "Discuss the latest movies hitting theaters", CreatedBy: "Admin", Created: now},
		{ID: 3, Title: "Classic Cinema", Description: "Celebrating timeless films and directors", CreatedBy: "Admin", Created: now},
	}
	threads := []*types.Thread{
		{ID: 1, ForumID: 1, Title: "Best Films of 2025 Discussion", Content: "What are your picks for the best films released so far this year?", Author: "FilmBuff2025", Created: now.Add(-24 * time.Hour)},
		{ID: 2, ForumID: 1, Title: "Underrated Horror Gems", Content: "Let's share some hidden horror gems that deserve more attention.", Author: "HorrorFan", Created: now.Add(-48 * time.Hour)},
		{ID: 3, ForumID: 3, Title: "Nolan's Visual Evolution", Content: "How has Christopher Nolan's visual style evolved from Following to his recent works?", Author: "CinemaStudent", Created: now.Add(-72 * time.Hour)},
	}
	parent := 1
	comments := []*types.Comment{
		{ID: 1, ThreadID: 1, Content: "I think Dune: Part Two deserves a mention. The cinematography was stunning.", Author: "SciFiLover", Created: now.Add(-12 * time.Hour)},
		{ID: 2, ThreadID: 1, ParentID: &parent, Content: "Totally agree! The desert sequences were breathtaking.", Author: "FilmBuff2025", Created: now.Add(-6 * time.Hour)},
		{ID: 3, ThreadID: 2, Content: "Have you seen 'His House'? Brilliant storytelling.", Author: "IndieWatcher", Created: now.Add(-24 * time.Hour)},
	}

	for _, f := range forums {
		l.forums[f.ID] = f
	}
	for _, t := range threads {
		l.threads[t.ID] = t
	}
	for _, c := range comments {
		l.comments[c.ID] = c
		l.threads[c.ThreadID].CommentCount++
	}
	for _, t := range threads {
		l.forums[t.ForumID].ThreadCount++
		l.forums[t.ForumID].PostCount += t.CommentCount
	}
}
