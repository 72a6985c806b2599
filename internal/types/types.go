package types

import (
	"time"

	"github.com/google/uuid"
)

// VotableType names the two entity kinds eligible for voting.
type VotableType string

const (
	VotableThread  VotableType = "thread"
	VotableComment VotableType = "comment"
)

// VoteDirection is "up" or "down".
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Identity is the normalized authenticated user record exposed by the
// session manager. ID is the auth service's identity id.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
}

// Profile is the backing row for an auth identity, created on first write.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Created     time.Time `json:"created_at"`
	Updated     time.Time `json:"updated_at"`
}

// Film is the normalized catalog record. Immutable once fetched.
type Film struct {
	ID       int          `json:"id"`
	Title    string       `json:"title"`
	Year     int          `json:"year"`
	Director string       `json:"director"`
	Genres   []string     `json:"genres"`
	Runtime  int          `json:"runtime"`
	Rating   string       `json:"rating"` // one decimal, or "N/A"
	Poster   string       `json:"poster"`
	Overview string       `json:"overview"`
	Cast     []CastMember `json:"cast"`
}

// FilmSummary is the reduced shape returned by catalog search.
type FilmSummary struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Year       int     `json:"year"`
	Poster     string  `json:"poster"`
	Popularity float64 `json:"popularity"`
}

type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

// WatchedEntry marks a (user, film) pair as watched. Unique per pair.
type WatchedEntry struct {
	ID      int       `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	MovieID int       `json:"movie_id"`
	Title   string    `json:"title"`
	Year    int       `json:"year"`
	Poster  string    `json:"poster"`
	Watched time.Time `json:"watched_at"`
}

// Review is a star rating (1-5) plus free text. At most one per (user, film);
// saving again replaces the prior review.
type Review struct {
	ID      int       `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	MovieID int       `json:"movie_id"`
	Title   string    `json:"title"`
	Year    int       `json:"year"`
	Poster  string    `json:"poster"`
	Rating  int       `json:"rating"`
	Text    string    `json:"text"`
	Created time.Time `json:"created_at"`
	Updated time.Time `json:"updated_at"`
}

type Forum struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	Created     time.Time `json:"created_at"`
	ThreadCount int       `json:"thread_count"`
	PostCount   int       `json:"post_count"`
}

type Thread struct {
	ID           int       `json:"id"`
	ForumID      int       `json:"forum_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       string    `json:"author"`
	Created      time.Time `json:"created_at"`
	Votes        int       `json:"votes"`
	CommentCount int       `json:"comment_count"`
}

// Comment belongs to a thread. ParentID nil means top-level; non-nil means
// reply. Structurally a tree of unbounded depth.
type Comment struct {
	ID       int       `json:"id"`
	ThreadID int       `json:"thread_id"`
	ParentID *int      `json:"parent_id"`
	Content  string    `json:"content"`
	Author   string    `json:"author"`
	Created  time.Time `json:"created_at"`
	Votes    int       `json:"votes"`
}

// Request/Response types

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,username"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateForumRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

type CreateThreadRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required"`
	ParentID *int   `json:"parent_id"`
}

type VoteRequest struct {
	Direction VoteDirection `json:"direction" validate:"required,oneof=up down"`
}

type SaveReviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text"`
}

type StartImportRequest struct {
	PlexToken  string `json:"plex_token" validate:"required"`
	ServerURL  string `json:"server_url" validate:"required,url"`
	LibraryKey int    `json:"library_key" validate:"required"`
}
