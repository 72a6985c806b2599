// Package session wraps the GoTrue-style auth service: sign up, sign in,
// sign out, session fetch, and state-change notification.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaewonYunDS/Filmind/internal/logging"
	"github.com/JaewonYunDS/Filmind/internal/types"
	"github.com/JaewonYunDS/Filmind/internal/validation"
)

// State is the manager's authentication state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

// User-facing messages for classified auth failures.
const (
	msgConnectivity   = "Unable to reach the sign-in service. Please try again."
	msgBadCredentials = "Invalid email or password."
	msgDuplicate      = "An account with this email already exists. Try signing in instead."
	msgUnconfirmed    = "Please confirm your email address before signing in."
)

// ChangeFunc receives the state and user record after each completed
// transition. Invocations are serialized in completion order.
type ChangeFunc func(state State, user *types.Identity)

// ProfileReader resolves the display name for an authenticated identity
// from its profile row, when the durable store is reachable.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
}

// Session is an authenticated session's tokens plus the normalized user.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         types.Identity
}

// Manager drives the three-state auth machine against the remote service.
type Manager struct {
	baseURL  string
	anonKey  string
	client   *http.Client
	profiles ProfileReader

	mu       sync.Mutex
	state    State
	session  *Session
	onChange ChangeFunc

	// notifyMu serializes change callbacks so rapid transitions are
	// delivered in completion order.
	notifyMu sync.Mutex
}

func NewManager(baseURL, anonKey string, profiles ProfileReader) *Manager {
	return &Manager{
		baseURL:  strings.TrimRight(baseURL, "/"),
		anonKey:  anonKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		profiles: profiles,
		state:    StateUnauthenticated,
	}
}

// OnChange registers the single change callback, replacing any previous one.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the authenticated identity, or nil.
func (m *Manager) CurrentUser() *types.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	user := m.session.User
	return &user
}

// AccessToken returns the live access token, or "".
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// Auth service wire types

type authUserResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type authTokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         authUserResponse `json:"user"`
}

type authErrorResponse struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *authErrorResponse) text() string {
	for _, s := range []string{e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignUp registers a new account. Validation happens before any network
// call; classified failures surface as user-facing messages.
func (m *Manager) SignUp(ctx context.Context, req types.SignUpRequest) (*types.Identity, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	m.setState(StateAuthenticating)

	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
		"data":     map[string]any{"username": req.Username},
	}

	var resp authTokenResponse
	err := m.post(ctx, "/auth/v1/signup", "", body, &resp)
	if err != nil {
		m.setState(StateUnauthenticated)
		return nil, classify(err)
	}

	// Without an access token the service requires email confirmation
	// before a session exists.
	if resp.AccessToken == "" {
		m.setState(StateUnauthenticated)
		user := m.normalizeUser(ctx, resp.User)
		m.notify(StateUnauthenticated, nil)
		return &user, nil
	}

	return m.completeSignIn(ctx, &resp)
}

// SignIn exchanges credentials for a session.
func (m *Manager) SignIn(ctx context.Context, req types.SignInRequest) (*types.Identity, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	m.setState(StateAuthenticating)

	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
	}

	var resp authTokenResponse
	err := m.post(ctx, "/auth/v1/token?grant_type=password", "", body, &resp)
	if err != nil {
		m.setState(StateUnauthenticated)
		return nil, classify(err)
	}

	return m.completeSignIn(ctx, &resp)
}

func (m *Manager) completeSignIn(ctx context.Context, resp *authTokenResponse) (*types.Identity, error) {
	user := m.normalizeUser(ctx, resp.User)

	m.mu.Lock()
	m.state = StateAuthenticated
	m.session = &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         user,
	}
	m.mu.Unlock()

	m.notify(StateAuthenticated, &user)
	return &user, nil
}

// SignOut always drops the local session synchronously; the remote call is
// best-effort and its failure is only logged.
func (m *Manager) SignOut(ctx context.Context) {
	m.mu.Lock()
	var token string
	if m.session != nil {
		token = m.session.AccessToken
	}
	m.state = StateUnauthenticated
	m.session = nil
	m.mu.Unlock()

	m.notify(StateUnauthenticated, nil)

	if token == "" {
		return
	}
	if err := m.post(ctx, "/auth/v1/logout", token, nil, nil); err != nil {
		logging.L().Warn().Err(err).Msg("remote sign-out failed; local session already cleared")
	}
}

// FetchUser validates a token against the auth service and returns the
// normalized identity. Used on startup to resume a stored session.
func (m *Manager) FetchUser(ctx context.Context, token string) (*types.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	m.setHeaders(req, token)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classify(readAuthError(resp))
	}

	var userResp authUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&userResp); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	user := m.normalizeUser(ctx, userResp)

	m.mu.Lock()
	m.state = StateAuthenticated
	m.session = &Session{AccessToken: token, User: user}
	m.mu.Unlock()

	m.notify(StateAuthenticated, &user)
	return &user, nil
}

// normalizeUser builds the exposed identity: username from signup metadata
// or the email local-part, display name from the profile row when one
// exists, else username, else "User".
func (m *Manager) normalizeUser(ctx context.Context, raw authUserResponse) types.Identity {
	id, err := uuid.Parse(raw.ID)
	if err != nil {
		logging.L().Warn().Str("id", raw.ID).Msg("auth service returned non-uuid user id")
	}

	username := ""
	if v, ok := raw.UserMetadata["username"].(string); ok {
		username = v
	}
	if username == "" {
		if i := strings.Index(raw.Email, "@"); i > 0 {
			username = raw.Email[:i]
		}
	}

	displayName := username
	if m.profiles != nil && id != uuid.Nil {
		if profile, err := m.profiles.GetProfile(ctx, id); err == nil && profile.DisplayName != "" {
			displayName = profile.DisplayName
		}
	}
	if displayName == "" {
		displayName = "User"
	}

	return types.Identity{
		ID:          id,
		Email:       raw.Email,
		Username:    username,
		DisplayName: displayName,
	}
}

func (m *Manager) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func (m *Manager) notify(state State, user *types.Identity) {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn == nil {
		return
	}
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	fn(state, user)
}

func (m *Manager) setHeaders(req *http.Request, token string) {
	req.Header.Set("apikey", m.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (m *Manager) post(ctx context.Context, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	m.setHeaders(req, token)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAuthError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func readAuthError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var authErr authErrorResponse
	if err := json.Unmarshal(data, &authErr); err == nil {
		if msg := authErr.text(); msg != "" {
			return errors.New(msg)
		}
	}
	return fmt.Errorf("auth service returned status %d", resp.StatusCode)
}

// classify maps service errors to distinct user-facing messages.
// Unrecognized messages pass through verbatim.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return errors.New(msgConnectivity)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "Invalid login credentials"):
		return errors.New(msgBadCredentials)
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already been registered"):
		return errors.New(msgDuplicate)
	case strings.Contains(msg, "Email not confirmed"):
		return errors.New(msgUnconfirmed)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return errors.New(msgConnectivity)
	default:
		return err
	}
}
