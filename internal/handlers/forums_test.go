package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaewonYunDS/Filmind/internal/forum"
	"github.com/JaewonYunDS/Filmind/internal/store"
)

// newForumMux wires the forum routes against a local-only selector, the
// same shape guests see when the durable store is down.
func newForumMux() *http.ServeMux {
	selector := store.NewSelector(nil, store.NewLocal())
	handler := NewForumHandler(forum.NewEngine(selector), selector)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/forums", handler.ListForums)
	mux.HandleFunc("POST /api/forums", handler.CreateForum)
	mux.HandleFunc("GET /api/forums/{forumId}/threads", handler.ListThreads)
	mux.HandleFunc("POST /api/forums/{forumId}/threads", handler.CreateThread)
	mux.HandleFunc("GET /api/threads/{threadId}", handler.GetThread)
	mux.HandleFunc("POST /api/threads/{threadId}/comments", handler.CreateComment)
	mux.HandleFunc("POST /api/votes/{votableType}/{votableId}", handler.Vote)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestForumRoutes_GuestRoundTrip(t *testing.T) {
	mux := newForumMux()

	rec, body := doJSON(t, mux, http.MethodPost, "/api/forums", `{"title":"General"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "Guest", body["created_by"])

	rec, body = doJSON(t, mux, http.MethodPost, "/api/forums/1/threads", `{"title":"Hello","content":"first"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	threadID := int(body["id"].(float64))

	rec, body = doJSON(t, mux, http.MethodPost, "/api/votes/thread/1", `{"direction":"up"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["delta"])
	assert.Equal(t, "up", body["user_vote"])

	rec, body = doJSON(t, mux, http.MethodPost, "/api/threads/1/comments", `{"content":"welcome"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body = doJSON(t, mux, http.MethodGet, "/api/threads/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	thread := body["thread"].(map[string]interface{})
	assert.Equal(t, float64(threadID), thread["id"])
	assert.Equal(t, float64(1), thread["votes"])
	comments := body["comments"].([]interface{})
	require.Len(t, comments, 1)

	rec, body = doJSON(t, mux, http.MethodGet, "/api/forums", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["local_mode"])
	forums := body["forums"].([]interface{})
	require.Len(t, forums, 1)
}

func TestForumRoutes_Validation(t *testing.T) {
	mux := newForumMux()

	rec, _ := doJSON(t, mux, http.MethodPost, "/api/forums", `{"description":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, mux, http.MethodPost, "/api/votes/thread/1", `{"direction":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, mux, http.MethodPost, "/api/votes/movie/1", `{"direction":"up"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForumRoutes_NotFound(t *testing.T) {
	mux := newForumMux()

	rec, _ := doJSON(t, mux, http.MethodGet, "/api/threads/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, mux, http.MethodPost, "/api/forums/42/threads", `{"title":"t","content":"c"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
