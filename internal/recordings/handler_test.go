package recordings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screenloom/backend/internal/models"
)

func newListRouter(t *testing.T) (*gin.Engine, *Repository) {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	router := gin.New()
	router.GET("/recordings", NewHandler(repo, nil).List)
	return router, repo
}

func getRecordings(router *gin.Engine, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings"+query, nil))
	return w
}

func TestListReturnsHistory(t *testing.T) {
	router, repo := newListRouter(t)
	for _, v := range []string{"v1", "v2"} {
		require.NoError(t, repo.Create(context.Background(), &models.Recording{VideoID: v}))
	}

	w := getRecordings(router, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool               `json:"success"`
		Data    []models.Recording `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "v2", body.Data[0].VideoID)
}

func TestListHonorsLimit(t *testing.T) {
	router, repo := newListRouter(t)
	for _, v := range []string{"v1", "v2", "v3"} {
		require.NoError(t, repo.Create(context.Background(), &models.Recording{VideoID: v}))
	}

	w := getRecordings(router, "?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.Recording `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
}

func TestListRejectsInvalidLimit(t *testing.T) {
	router, _ := newListRouter(t)
	assert.Equal(t, http.StatusBadRequest, getRecordings(router, "?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, getRecordings(router, "?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, getRecordings(router, "?limit=-5").Code)
}
