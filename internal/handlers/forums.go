package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JaewonYunDS/Filmind/internal/auth"
	"github.com/JaewonYunDS/Filmind/internal/forum"
	"github.com/JaewonYunDS/Filmind/internal/store"
	"github.com/JaewonYunDS/Filmind/internal/types"
	"github.com/JaewonYunDS/Filmind/internal/utils"
	"github.com/JaewonYunDS/Filmind/internal/validation"
)

type ForumHandler struct {
	engine   *forum.Engine
	selector *store.Selector
}

func NewForumHandler(engine *forum.Engine, selector *store.Selector) *ForumHandler {
	return &ForumHandler{engine: engine, selector: selector}
}

func (h *ForumHandler) ListForums(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	forums, err := h.engine.ListForums(r.Context(), actor)
	if err != nil {
		utils.RespondError(w, "Failed to load forums", http.StatusInternalServerError)
		return
	}
	if forums == nil {
		forums = []types.Forum{}
	}

	utils.RespondJSON(w, map[string]interface{}{
		"forums":     forums,
		"local_mode": !h.selector.RemoteAvailable() || actor == nil,
	}, http.StatusOK)
}

func (h *ForumHandler) CreateForum(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	var req types.CreateForumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.Struct(req); err != nil {
		utils.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.engine.CreateForum(r.Context(), actor, req)
	if err != nil {
		respondStoreError(w, err, "Failed to create forum")
		return
	}
	utils.RespondJSON(w, created, http.StatusCreated)
}

func (h *ForumHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	forumID, err := utils.GetPathParamInt(r, "forumId")
	if err != nil {
		utils.RespondError(w, "Invalid forum id", http.StatusBadRequest)
		return
	}

	threads, err := h.engine.ListThreads(r.Context(), actor, forumID)
	if err != nil {
		respondStoreError(w, err, "Failed to load threads")
		return
	}
	if threads == nil {
		threads = []types.Thread{}
	}
	utils.RespondJSON(w, map[string]interface{}{"threads": threads}, http.StatusOK)
}

func (h *ForumHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	forumID, err := utils.GetPathParamInt(r, "forumId")
	if err != nil {
		utils.RespondError(w, "Invalid forum id", http.StatusBadRequest)
		return
	}

	var req types.CreateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.Struct(req); err != nil {
		utils.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	thread, err := h.engine.CreateThread(r.Context(), actor, forumID, req)
	if err != nil {
		respondStoreError(w, err, "Failed to create thread")
		return
	}
	utils.RespondJSON(w, thread, http.StatusCreated)
}

func (h *ForumHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	threadID, err := utils.GetPathParamInt(r, "threadId")
	if err != nil {
		utils.RespondError(w, "Invalid thread id", http.StatusBadRequest)
		return
	}

	view, err := h.engine.GetThreadView(r.Context(), actor, threadID)
	if err != nil {
		respondStoreError(w, err, "Failed to load thread")
		return
	}
	utils.RespondJSON(w, view, http.StatusOK)
}

func (h *ForumHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	threadID, err := utils.GetPathParamInt(r, "threadId")
	if err != nil {
		utils.RespondError(w, "Invalid thread id", http.StatusBadRequest)
		return
	}

	var req types.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.Struct(req); err != nil {
		utils.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.engine.CreateComment(r.Context(), actor, threadID, req)
	if err != nil {
		respondStoreError(w, err, "Failed to create comment")
		return
	}
	utils.RespondJSON(w, comment, http.StatusCreated)
}

func (h *ForumHandler) Vote(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	votableType := types.VotableType(utils.GetPathParam(r, "votableType"))
	if votableType != types.VotableThread && votableType != types.VotableComment {
		utils.RespondError(w, "Invalid votable type", http.StatusBadRequest)
		return
	}

	votableID, err := utils.GetPathParamInt(r, "votableId")
	if err != nil {
		utils.RespondError(w, "Invalid votable id", http.StatusBadRequest)
		return
	}

	var req types.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.Struct(req); err != nil {
		utils.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	delta, current, err := h.engine.Vote(r.Context(), actor, votableType, votableID, req.Direction)
	if err != nil {
		respondStoreError(w, err, "Failed to record vote")
		return
	}

	utils.RespondJSON(w, map[string]interface{}{
		"delta":     delta,
		"user_vote": current,
	}, http.StatusOK)
}

// respondStoreError maps backend error classes onto status codes and
// user-facing messages.
func respondStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, store.ErrNotAuthenticated):
		utils.RespondError(w, "Sign in required", http.StatusUnauthorized)
	case errors.Is(err, store.ErrProfileMissing):
		utils.RespondError(w, "Your profile could not be found. Please sign in again.", http.StatusConflict)
	default:
		utils.RespondError(w, fallback, http.StatusInternalServerError)
	}
}
