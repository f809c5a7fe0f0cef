package inventory

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/ventil-api/pkg/response"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *response.Error `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	router := gin.New()
	NewGinHandlers(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func call(t *testing.T, router *gin.Engine, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestHandlersInventoryFlow(t *testing.T) {
	router := newTestRouter(t)

	status, env := call(t, router, http.MethodPost, "/api/v1/owners", nil)
	require.Equal(t, http.StatusCreated, status)
	var owner struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &owner))

	status, env = call(t, router, http.MethodPost, "/api/v1/items", CreateItemRequest{ItemType: "map"})
	require.Equal(t, http.StatusCreated, status)
	var item struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))

	status, env = call(t, router, http.MethodPost, "/api/v1/possessions", PossessionRequest{OwnerID: owner.ID, ItemID: item.ID})
	require.Equal(t, http.StatusCreated, status)
	var possession PossessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &possession))
	assert.Equal(t, "map", possession.ItemType)

	status, env = call(t, router, http.MethodGet, "/api/v1/possessions/owner/1", nil)
	require.Equal(t, http.StatusOK, status)
	var list []PossessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	status, _ = call(t, router, http.MethodDelete, "/api/v1/possessions/1", nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestHandlersInventoryErrors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown owner", http.MethodGet, "/api/v1/owners/5", nil, http.StatusNotFound, response.ErrCodeNotFound},
		{"bad owner id", http.MethodGet, "/api/v1/owners/abc", nil, http.StatusBadRequest, response.ErrCodeBadRequest},
		{"item without type", http.MethodPost, "/api/v1/items", map[string]string{}, http.StatusBadRequest, response.ErrCodeBadRequest},
		{"dangling possession", http.MethodPost, "/api/v1/possessions", PossessionRequest{OwnerID: 1, ItemID: 1}, http.StatusBadRequest, response.ErrCodeBadRequest},
		{"unknown possession", http.MethodDelete, "/api/v1/possessions/3", nil, http.StatusNotFound, response.ErrCodeNotFound},
		{"unknown item listing", http.MethodGet, "/api/v1/possessions/item/3", nil, http.StatusNotFound, response.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}
