package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/JaewonYunDS/Filmind/internal/auth"
	"github.com/JaewonYunDS/Filmind/internal/services"
	"github.com/JaewonYunDS/Filmind/internal/types"
	"github.com/JaewonYunDS/Filmind/internal/utils"
	"github.com/JaewonYunDS/Filmind/internal/validation"
)

type PlexHandler struct {
	plex    *services.PlexClient
	manager *services.JobManager
}

func NewPlexHandler(plex *services.PlexClient, manager *services.JobManager) *PlexHandler {
	return &PlexHandler{plex: plex, manager: manager}
}

// ListServers returns the Plex servers reachable with the provided token.
func (h *PlexHandler) ListServers(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Plex-Token")
	if token == "" {
		utils.RespondError(w, "Plex token required", http.StatusBadRequest)
		return
	}

	servers, err := h.plex.GetServers(r.Context(), token)
	if err != nil {
		utils.RespondError(w, "Failed to reach Plex", http.StatusBadGateway)
		return
	}

	result := make([]map[string]interface{}, 0, len(servers))
	for _, server := range servers {
		entry := map[string]interface{}{
			"name":       server.Name,
			"machine_id": server.MachineID,
			"owned":      server.Owned,
		}
		if conn := h.plex.BestConnection(server); conn != nil {
			entry["url"] = conn.URI
		}
		result = append(result, entry)
	}
	utils.RespondJSON(w, map[string]interface{}{"servers": result}, http.StatusOK)
}

// ListLibraries returns the movie libraries on a server.
func (h *PlexHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Plex-Token")
	serverURL := utils.GetQueryParam(r, "server_url", "")
	if token == "" || serverURL == "" {
		utils.RespondError(w, "Plex token and server_url required", http.StatusBadRequest)
		return
	}

	libraries, err := h.plex.GetLibraries(r.Context(), token, serverURL)
	if err != nil {
		utils.RespondError(w, "Failed to list libraries", http.StatusBadGateway)
		return
	}

	movieLibs := make([]services.PlexLibrary, 0, len(libraries))
	for _, lib := range libraries {
		if lib.Type == "movie" {
			movieLibs = append(movieLibs, lib)
		}
	}
	utils.RespondJSON(w, map[string]interface{}{"libraries": movieLibs}, http.StatusOK)
}

// StartImport queues a watched-history import job for the signed-in user.
func (h *PlexHandler) StartImport(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())
	if actor == nil {
		utils.RespondError(w, "Sign in required", http.StatusUnauthorized)
		return
	}

	var req types.StartImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.Struct(req); err != nil {
		utils.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.manager.CreateJob(services.JobTypePlexImport, actor.ID.String(), map[string]interface{}{
		"plex_token":  req.PlexToken,
		"server_url":  req.ServerURL,
		"library_key": req.LibraryKey,
		"username":    actor.Username,
		"email":       actor.Email,
	})
	if err != nil {
		utils.RespondError(w, "Failed to start import", http.StatusInternalServerError)
		return
	}
	utils.RespondJSON(w, job, http.StatusAccepted)
}

// GetJob returns the status of one import job, scoped to its owner.
func (h *PlexHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())
	if actor == nil {
		utils.RespondError(w, "Sign in required", http.StatusUnauthorized)
		return
	}

	jobID, err := utils.GetPathParamInt(r, "jobId")
	if err != nil {
		utils.RespondError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := h.manager.GetJob(int64(jobID))
	if err != nil || job.UserID != actor.ID.String() {
		utils.RespondError(w, "Job not found", http.StatusNotFound)
		return
	}
	utils.RespondJSON(w, job, http.StatusOK)
}

// CancelJob cancels a pending or running import job, scoped to its owner.
func (h *PlexHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())
	if actor == nil {
		utils.RespondError(w, "Sign in required", http.StatusUnauthorized)
		return
	}

	jobID, err := utils.GetPathParamInt(r, "jobId")
	if err != nil {
		utils.RespondError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := h.manager.GetJob(int64(jobID))
	if err != nil || job.UserID != actor.ID.String() {
		utils.RespondError(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.Status != services.JobStatusPending && job.Status != services.JobStatusRunning {
		utils.RespondError(w, "Job already finished", http.StatusConflict)
		return
	}

	if err := h.manager.CancelJob(job.ID); err != nil {
		utils.RespondError(w, "Failed to cancel job", http.StatusInternalServerError)
		return
	}
	utils.RespondJSON(w, map[string]interface{}{"cancelled": true}, http.StatusOK)
}

// ListJobs returns the signed-in user's recent import jobs.
func (h *PlexHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())
	if actor == nil {
		utils.RespondError(w, "Sign in required", http.StatusUnauthorized)
		return
	}

	limit := utils.GetQueryParamInt(r, "limit", 20)
	jobs, err := h.manager.GetUserJobs(actor.ID.String(), limit)
	if err != nil {
		utils.RespondError(w, "Failed to load jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*services.Job{}
	}
	utils.RespondJSON(w, map[string]interface{}{"jobs": jobs}, http.StatusOK)
}
