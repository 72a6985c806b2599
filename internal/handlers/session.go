package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JaewonYunDS/Filmind/internal/session"
	"github.com/JaewonYunDS/Filmind/internal/store"
	"github.com/JaewonYunDS/Filmind/internal/types"
	"github.com/JaewonYunDS/Filmind/internal/utils"
)

type SessionHandler struct {
	manager  *session.Manager
	selector *store.Selector
}

func NewSessionHandler(manager *session.Manager, selector *store.Selector) *SessionHandler {
	return &SessionHandler{manager: manager, selector: selector}
}

func (h *SessionHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req types.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.manager.SignUp(r.Context(), req)
	if err != nil {
		utils.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	utils.RespondJSON(w, map[string]interface{}{
		"user":         user,
		"access_token": h.manager.AccessToken(),
		"state":        h.manager.State(),
	}, http.StatusCreated)
}

func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req types.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.manager.SignIn(r.Context(), req)
	if err != nil {
		utils.RespondError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	utils.RespondJSON(w, map[string]interface{}{
		"user":         user,
		"access_token": h.manager.AccessToken(),
	}, http.StatusOK)
}

// SignOut drops the session and wipes the local store's user-scoped data.
// The local reset happens before the response regardless of whether the
// remote sign-out succeeded.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.selector.Local().ResetUserData()
	h.manager.SignOut(r.Context())

	utils.RespondJSON(w, map[string]interface{}{"signed_out": true}, http.StatusOK)
}

// CurrentUser resolves the session for the request's bearer token, so each
// caller sees their own identity rather than whoever signed in last.
func (h *SessionHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		utils.RespondJSON(w, map[string]interface{}{
			"user":  nil,
			"state": session.StateUnauthenticated,
		}, http.StatusOK)
		return
	}

	user, err := h.manager.FetchUser(r.Context(), token)
	if err != nil {
		utils.RespondError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	utils.RespondJSON(w, map[string]interface{}{
		"user":  user,
		"state": session.StateAuthenticated,
	}, http.StatusOK)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
