package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/JaewonYunDS/Filmind/internal/auth"
	"github.com/JaewonYunDS/Filmind/internal/tracker"
	"github.com/JaewonYunDS/Filmind/internal/types"
	"github.com/JaewonYunDS/Filmind/internal/utils"
	"github.com/JaewonYunDS/Filmind/internal/validation"
)

type MovieHandler struct {
	tracker *tracker.Service
}

func NewMovieHandler(tracker *tracker.Service) *MovieHandler {
	return &MovieHandler{tracker: tracker}
}

func (h *MovieHandler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query := utils.GetQueryParam(r, "q", "")

	results, err := h.tracker.Search(r.Context(), query)
	if err != nil {
		utils.RespondError(w, "Search is unavailable right now. Please try again.", http.StatusBadGateway)
		return
	}
	if results == nil {
		results = []types.FilmSummary{}
	}
	utils.RespondJSON(w, map[string]interface{}{"results": results}, http.StatusOK)
}

func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	movieID, err := utils.GetPathParamInt(r, "movieId")
	if err != nil {
		utils.RespondError(w, "Invalid movie id", http.StatusBadRequest)
		return
	}

	film, watched, review, err := h.tracker.FilmDetails(r.Context(), actor, movieID)
	if err != nil {
		respondStoreError(w, err, "Failed to load movie")
		return
	}

	utils.RespondJSON(w, map[string]interface{}{
		"movie":   film,
		"watched": watched,
		"review":  review,
	}, http.StatusOK)
}

func (h *MovieHandler) ToggleWatched(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	movieID, err := utils.GetPathParamInt(r, "movieId")
	if err != nil {
		utils.RespondError(w, "Invalid movie id", http.StatusBadRequest)
		return
	}

	watched, err := h.tracker.ToggleWatched(r.Context(), actor, movieID)
	if err != nil {
		respondStoreError(w, err, "Failed to update watched status")
		return
	}
	utils.RespondJSON(w, map[string]interface{}{"watched": watched}, http.StatusOK)
}

func (h *MovieHandler) SaveReview(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	movieID, err := utils.GetPathParamInt(r, "movieId")
	if err != nil {
		utils.RespondError(w, "Invalid movie id", http.StatusBadRequest)
		return
	}

	var req types.SaveReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.Struct(req); err != nil {
		utils.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	review, err := h.tracker.SaveReview(r.Context(), actor, movieID, req)
	if err != nil {
		respondStoreError(w, err, "Failed to save review")
		return
	}
	utils.RespondJSON(w, review, http.StatusOK)
}

func (h *MovieHandler) WatchedMovies(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	entries, err := h.tracker.WatchedMovies(r.Context(), actor)
	if err != nil {
		respondStoreError(w, err, "Failed to load watched movies")
		return
	}
	if entries == nil {
		entries = []types.WatchedEntry{}
	}
	utils.RespondJSON(w, map[string]interface{}{"watched": entries}, http.StatusOK)
}

func (h *MovieHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	reviews, err := h.tracker.Reviews(r.Context(), actor)
	if err != nil {
		respondStoreError(w, err, "Failed to load reviews")
		return
	}
	if reviews == nil {
		reviews = []types.Review{}
	}
	utils.RespondJSON(w, map[string]interface{}{"reviews": reviews}, http.StatusOK)
}

func (h *MovieHandler) ProfileStats(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())

	stats, err := h.tracker.Stats(r.Context(), actor)
	if err != nil {
		respondStoreError(w, err, "Failed to load profile stats")
		return
	}
	utils.RespondJSON(w, stats, http.StatusOK)
}
