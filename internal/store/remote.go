package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JaewonYunDS/Filmind/internal/types"
)

// Remote is the durable sqlite-backed store.
type Remote struct {
	db *sql.DB
}

func NewRemote(db *sql.DB) *Remote {
	return &Remote{db: db}
}

// ensureProfile creates the profile row backing an auth identity if it does
// not exist yet. Every write path calls this first so a freshly signed-up
// user can post immediately. Username falls back to the email local-part.
func (r *Remote) ensureProfile(ctx context.Context, actor types.Identity) error {
	if actor.ID == uuid.Nil {
		return ErrNotAuthenticated
	}

	username := actor.Username
	if username == "" {
		username = emailLocalPart(actor.Email)
	}
	displayName := actor.DisplayName
	if displayName == "" {
		displayName = username
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, display_name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		actor.ID.String(), username, displayName,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileMissing, err)
	}
	return nil
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

func (r *Remote) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	var p types.Profile
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, created_at, updated_at
		FROM profiles WHERE id = ?`,
		userID.String(),
	).Scan(&id, &p.Username, &p.DisplayName, &p.Created, &p.Updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid profile id %q: %w", id, err)
	}
	return &p, nil
}

// Forums

func (r *Remote) ListForums(ctx context.Context) ([]types.Forum, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.title, f.description, p.display_name, f.created_at,
		       f.thread_count, f.post_count
		FROM forums f
		JOIN profiles p ON p.id = f.created_by
		ORDER BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list forums: %w", err)
	}
	defer rows.Close()

	var forums []types.Forum
	for rows.Next() {
		var f types.Forum
		if err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.CreatedBy,
			&f.Created, &f.ThreadCount, &f.PostCount); err != nil {
			return nil, fmt.Errorf("failed to scan forum: %w", err)
		}
		forums = append(forums, f)
	}
	return forums, rows.Err()
}

func (r *Remote) CreateForum(ctx context.Context, actor types.Identity, title, description string) (*types.Forum, error) {
	if err := r.ensureProfile(ctx, actor); err != nil {
		return nil, err
	}
	if description == "" {
		description = "No description provided"
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO forums (title, description, created_by)
		VALUES (?, ?, ?)`,
		title, description, actor.ID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create forum: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get forum id: %w", err)
	}
	return r.getForum(ctx, int(id))
}

func (r *Remote) getForum(ctx context.Context, forumID int) (*types.Forum, error) {
	var f types.Forum
	err := r.db.QueryRowContext(ctx, `
		SELECT f.id, f.title, f.description, p.display_name, f.created_at,
		       f.thread_count, f.post_count
		FROM forums f
		JOIN profiles p ON p.id = f.created_by
		WHERE f.id = ?`,
		forumID,
	).Scan(&f.ID, &f.Title, &f.Description, &f.CreatedBy,
		&f.Created, &f.ThreadCount, &f.PostCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forum: %w", err)
	}
	return &f, nil
}

// Threads

func (r *Remote) ListThreads(ctx context.Context, forumID int) ([]types.Thread, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.forum_id, t.title, t.content, p.display_name,
		       t.created_at, t.votes, t.comment_count
		FROM threads t
		JOIN profiles p ON p.id = t.author_id
		WHERE t.forum_id = ?
		ORDER BY t.created_at DESC, t.id DESC`,
		forumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []types.Thread
	for rows.Next() {
		var t types.Thread
		if err := rows.Scan(&t.ID, &t.ForumID, &t.Title, &t.Content, &t.Author,
			&t.Created, &t.Votes, &t.CommentCount); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (r *Remote) GetThread(ctx context.Context, threadID int) (*types.Thread, error) {
	var t types.Thread
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.forum_id, t.title, t.content, p.display_name,
		       t.created_at, t.votes, t.comment_count
		FROM threads t
		JOIN profiles p ON p.id = t.author_id
		WHERE t.id = ?`,
		threadID,
	).Scan(&t.ID, &t.ForumID, &t.Title, &t.Content, &t.Author,
		&t.Created, &t.Votes, &t.CommentCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return &t, nil
}

func (r *Remote) CreateThread(ctx context.Context, actor types.Identity, forumID int, title, content string) (*types.Thread, error) {
	if err := r.ensureProfile(ctx, actor); err != nil {
		return nil, err
	}
	if _, err := r.getForum(ctx, forumID); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO threads (forum_id, title, content, author_id)
		VALUES (?, ?, ?, ?)`,
		forumID, title, content, actor.ID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread id: %w", err)
	}

	thread, err := r.GetThread(ctx, int(id))
	if err != nil {
		return nil, err
	}

	// The thread row is committed; a failed counter bump is reported as
	// retryable without undoing the insert.
	if _, err := r.db.ExecContext(ctx,
		"UPDATE forums SET thread_count = thread_count + 1 WHERE id = ?",
		forumID); err != nil {
		return thread, fmt.Errorf("%w: %v", ErrCounterUpdate, err)
	}
	return thread, nil
}

// Comments

func (r *Remote) ListComments(ctx context.Context, threadID int) ([]types.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.thread_id, c.parent_id, c.content, p.display_name,
		       c.created_at, c.votes
		FROM comments c
		JOIN profiles p ON p.id = c.author_id
		WHERE c.thread_id = ?
		ORDER BY c.created_at ASC, c.id ASC`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []types.Comment
	for rows.Next() {
		var c types.Comment
		var parentID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ThreadID, &parentID, &c.Content,
			&c.Author, &c.Created, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if parentID.Valid {
			pid := int(parentID.Int64)
			c.ParentID = &pid
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *Remote) CreateComment(ctx context.Context, actor types.Identity, threadID int, parentID *int, content string) (*types.Comment, error) {
	if err := r.ensureProfile(ctx, actor); err != nil {
		return nil, err
	}

	thread, err := r.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		var parentThread int
		err := r.db.QueryRowContext(ctx,
			"SELECT thread_id FROM comments WHERE id = ?", *parentID,
		).Scan(&parentThread)
		if err == sql.ErrNoRows || (err == nil && parentThread != threadID) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check parent comment: %w", err)
		}
	}

	var parent sql.NullInt64
	if parentID != nil {
		parent = sql.NullInt64{Int64: int64(*parentID), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (thread_id, parent_id, content, author_id)
		VALUES (?, ?, ?, ?)`,
		threadID, parent, content, actor.ID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get comment id: %w", err)
	}

	comment, err := r.getComment(ctx, int(id))
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, `
		UPDATE threads SET comment_count = comment_count + 1 WHERE id = ?`,
		threadID); err != nil {
		return comment, fmt.Errorf("%w: %v", ErrCounterUpdate, err)
	}
	if _, err := r.db.ExecContext(ctx, `
		UPDATE forums SET post_count = post_count + 1 WHERE id = ?`,
		thread.ForumID); err != nil {
		return comment, fmt.Errorf("%w: %v", ErrCounterUpdate, err)
	}
	return comment, nil
}

func (r *Remote) getComment(ctx context.Context, commentID int) (*types.Comment, error) {
	var c types.Comment
	var parentID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.thread_id, c.parent_id, c.content, p.display_name,
		       c.created_at, c.votes
		FROM comments c
		JOIN profiles p ON p.id = c.author_id
		WHERE c.id = ?`,
		commentID,
	).Scan(&c.ID, &c.ThreadID, &parentID, &c.Content, &c.Author, &c.Created, &c.Votes)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if parentID.Valid {
		pid := int(parentID.Int64)
		c.ParentID = &pid
	}
	return &c, nil
}

// Voting

// Vote runs the toggle inside one transaction so a direction flip lands as
// a single atomic counter adjustment.
func (r *Remote) Vote(ctx context.Context, actor types.Identity, votable types.VotableType, id int, direction types.VoteDirection) (int, error) {
	if err := r.ensureProfile(ctx, actor); err != nil {
		return 0, err
	}

	var table string
	switch votable {
	case types.VotableThread:
		table = "threads"
	case types.VotableComment:
		table = "comments"
	default:
		return 0, fmt.Errorf("unknown votable type %q", votable)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table), id,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check votable: %w", err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT vote_type FROM votes
		WHERE user_id = ? AND votable_type = ? AND votable_id = ?`,
		actor.ID.String(), string(votable), id,
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to read existing vote: %w", err)
	}
	hasVote := err == nil

	var delta int
	switch {
	case hasVote && current == string(direction):
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM votes
			WHERE user_id = ? AND votable_type = ? AND votable_id = ?`,
			actor.ID.String(), string(votable), id); err != nil {
			return 0, fmt.Errorf("failed to retract vote: %w", err)
		}
		if direction == types.VoteUp {
			delta = -1
		} else {
			delta = 1
		}
	case hasVote:
		if _, err := tx.ExecContext(ctx, `
			UPDATE votes SET vote_type = ?
			WHERE user_id = ? AND votable_type = ? AND votable_id = ?`,
			string(direction), actor.ID.String(), string(votable), id); err != nil {
			return 0, fmt.Errorf("failed to flip vote: %w", err)
		}
		if direction == types.VoteUp {
			delta = 2
		} else {
			delta = -2
		}
	default:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO votes (user_id, votable_type, votable_id, vote_type)
			VALUES (?, ?, ?, ?)`,
			actor.ID.String(), string(votable), id, string(direction)); err != nil {
			return 0, fmt.Errorf("failed to record vote: %w", err)
		}
		if direction == types.VoteUp {
			delta = 1
		} else {
			delta = -1
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET votes = votes + ? WHERE id = ?", table),
		delta, id); err != nil {
		return 0, fmt.Errorf("failed to update vote counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit vote: %w", err)
	}
	return delta, nil
}

func (r *Remote) UserVote(ctx context.Context, actor types.Identity, votable types.VotableType, id int) (types.VoteDirection, error) {
	if actor.ID == uuid.Nil {
		return "", nil
	}
	var current string
	err := r.db.QueryRowContext(ctx, `
		SELECT vote_type FROM votes
		WHERE user_id = ? AND votable_type = ? AND votable_id = ?`,
		actor.ID.String(), string(votable), id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read vote: %w", err)
	}
	return types.VoteDirection(current), nil
}

// Tracker

// upsertMovie caches the catalog record locally so watched entries and
// reviews can join against it even if the catalog is later unreachable.
func (r *Remote) upsertMovie(ctx context.Context, film *types.Film) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO movies (id, title, year, director, genres, runtime, rating, poster_url, synopsis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			director = excluded.director,
			genres = excluded.genres,
			runtime = excluded.runtime,
			rating = excluded.rating,
			poster_url = excluded.poster_url,
			synopsis = excluded.synopsis`,
		film.ID, film.Title, film.Year, film.Director,
		strings.Join(film.Genres, ","), film.Runtime, film.Rating,
		film.Poster, film.Overview,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert movie: %w", err)
	}
	return nil
}

func (r *Remote) ToggleWatched(ctx context.Context, actor types.Identity, film *types.Film) (bool, error) {
	if err := r.ensureProfile(ctx, actor); err != nil {
		return false, err
	}
	if err := r.upsertMovie(ctx, film); err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM watched_movies WHERE user_id = ? AND movie_id = ?`,
		actor.ID.String(), film.ID)
	if err != nil {
		return false, fmt.Errorf("failed to unmark watched: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check watched toggle: %w", err)
	}
	if affected > 0 {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO watched_movies (user_id, movie_id) VALUES (?, ?)`,
		actor.ID.String(), film.ID); err != nil {
		return false, fmt.Errorf("failed to mark watched: %w", err)
	}
	return true, nil
}

func (r *Remote) SaveReview(ctx context.Context, actor types.Identity, film *types.Film, rating int, text string) (*types.Review, error) {
	if err := r.ensureProfile(ctx, actor); err != nil {
		return nil, err
	}
	if err := r.upsertMovie(ctx, film); err != nil {
		return nil, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (user_id, movie_id, rating, review_text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, movie_id) DO UPDATE SET
			rating = excluded.rating,
			review_text = excluded.review_text,
			updated_at = CURRENT_TIMESTAMP`,
		actor.ID.String(), film.ID, rating, text,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	// Reviewing a film implies having watched it.
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO watched_movies (user_id, movie_id)
		VALUES (?, ?)
		ON CONFLICT(user_id, movie_id) DO NOTHING`,
		actor.ID.String(), film.ID); err != nil {
		return nil, fmt.Errorf("failed to mark reviewed movie watched: %w", err)
	}

	_, review, err := r.movieUserDataSerial(ctx, actor.ID, film.ID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, fmt.Errorf("review missing after save for movie %d", film.ID)
	}
	return review, nil
}

func (r *Remote) WatchedMovies(ctx context.Context, userID uuid.UUID) ([]types.WatchedEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.id, w.movie_id, m.title, m.year, m.poster_url, w.watched_at
		FROM watched_movies w
		JOIN movies m ON m.id = w.movie_id
		WHERE w.user_id = ?
		ORDER BY w.watched_at DESC, w.id DESC`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list watched movies: %w", err)
	}
	defer rows.Close()

	var entries []types.WatchedEntry
	for rows.Next() {
		var e types.WatchedEntry
		var year sql.NullInt64
		var poster sql.NullString
		if err := rows.Scan(&e.ID, &e.MovieID, &e.Title, &year, &poster, &e.Watched); err != nil {
			return nil, fmt.Errorf("failed to scan watched entry: %w", err)
		}
		e.UserID = userID
		e.Year = int(year.Int64)
		e.Poster = poster.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Remote) Reviews(ctx context.Context, userID uuid.UUID) ([]types.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rv.id, rv.movie_id, m.title, m.year, m.poster_url,
		       rv.rating, rv.review_text, rv.created_at, rv.updated_at
		FROM reviews rv
		JOIN movies m ON m.id = rv.movie_id
		WHERE rv.user_id = ?
		ORDER BY rv.updated_at DESC, rv.id DESC`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []types.Review
	for rows.Next() {
		var rv types.Review
		var year sql.NullInt64
		var poster sql.NullString
		if err := rows.Scan(&rv.ID, &rv.MovieID, &rv.Title, &year, &poster,
			&rv.Rating, &rv.Text, &rv.Created, &rv.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		rv.UserID = userID
		rv.Year = int(year.Int64)
		rv.Poster = poster.String
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// MovieUserData issues the watched lookup and the review lookup
// concurrently; the page needs both and neither depends on the other.
func (r *Remote) MovieUserData(ctx context.Context, userID uuid.UUID, movieID int) (bool, *types.Review, error) {
	var (
		wg         sync.WaitGroup
		watched    bool
		watchedErr error
		review     *types.Review
		reviewErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		watched, watchedErr = r.isWatched(ctx, userID, movieID)
	}()
	go func() {
		defer wg.Done()
		review, reviewErr = r.getReview(ctx, userID, movieID)
	}()
	wg.Wait()

	if watchedErr != nil {
		return false, nil, watchedErr
	}
	if reviewErr != nil {
		return false, nil, reviewErr
	}
	return watched, review, nil
}

func (r *Remote) movieUserDataSerial(ctx context.Context, userID uuid.UUID, movieID int) (bool, *types.Review, error) {
	watched, err := r.isWatched(ctx, userID, movieID)
	if err != nil {
		return false, nil, err
	}
	review, err := r.getReview(ctx, userID, movieID)
	if err != nil {
		return false, nil, err
	}
	return watched, review, nil
}

func (r *Remote) isWatched(ctx context.Context, userID uuid.UUID, movieID int) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM watched_movies WHERE user_id = ? AND movie_id = ?`,
		userID.String(), movieID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check watched: %w", err)
	}
	return count > 0, nil
}

func (r *Remote) getReview(ctx context.Context, userID uuid.UUID, movieID int) (*types.Review, error) {
	var rv types.Review
	var year sql.NullInt64
	var poster sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT rv.id, rv.movie_id, m.title, m.year, m.poster_url,
		       rv.rating, rv.review_text, rv.created_at, rv.updated_at
		FROM reviews rv
		JOIN movies m ON m.id = rv.movie_id
		WHERE rv.user_id = ? AND rv.movie_id = ?`,
		userID.String(), movieID,
	).Scan(&rv.ID, &rv.MovieID, &rv.Title, &year, &poster,
		&rv.Rating, &rv.Text, &rv.Created, &rv.Updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	rv.UserID = userID
	rv.Year = int(year.Int64)
	rv.Poster = poster.String
	return &rv, nil
}

// ReconcileCounters rewrites the denormalized counters from live counts.
// Run after a burst of ErrCounterUpdate failures, or periodically.
func (r *Remote) ReconcileCounters(ctx context.Context) error {
	stmts := []string{
		`UPDATE forums SET thread_count =
			(SELECT COUNT(*) FROM threads WHERE threads.forum_id = forums.id)`,
		`UPDATE forums SET post_count =
			(SELECT COUNT(*) FROM comments
			 JOIN threads ON threads.id = comments.thread_id
			 WHERE threads.forum_id = forums.id)`,
		`UPDATE threads SET comment_count =
			(SELECT COUNT(*) FROM comments WHERE comments.thread_id = threads.id)`,
		`UPDATE threads SET votes = COALESCE(
			(SELECT SUM(CASE WHEN vote_type = 'up' THEN 1 ELSE -1 END)
			 FROM votes WHERE votable_type = 'thread' AND votable_id = threads.id), 0)`,
		`UPDATE comments SET votes = COALESCE(
			(SELECT SUM(CASE WHEN vote_type = 'up' THEN 1 ELSE -1 END)
			 FROM votes WHERE votable_type = 'comment' AND votable_id = comments.id), 0)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("counter reconciliation failed: %w", err)
		}
	}
	return nil
}
