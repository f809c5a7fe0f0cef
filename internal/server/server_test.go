package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/ventil-api/internal/config"
	"github.com/ksred/ventil-api/internal/database"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.Default()
	cfg.RateLimitPerMinute = 0
	srv, err := New(db, cfg)
	require.NoError(t, err)
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, srv *Server, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	if out != nil {
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return w.Code
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.MissingPossessionPolicy = "ignore"
	_, err = New(db, cfg)
	assert.Error(t, err)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "ventil_http_requests_total"))
}

func TestBarterRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	type idOnly struct {
		ID uint `json:"id"`
	}
	var alice, bob, item idOnly
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/owners", nil, &alice))
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/owners", nil, &bob))
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/items", map[string]string{"item_type": "compass"}, &item))

	var aliceThing, bobThing idOnly
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/possessions",
		map[string]uint{"owner_id": alice.ID, "item_id": item.ID}, &aliceThing))
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/possessions",
		map[string]uint{"owner_id": bob.ID, "item_id": item.ID}, &bobThing))

	var trade struct {
		ID uint64 `json:"id"`
	}
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/trades",
		map[string]uint{"trader_1_id": alice.ID, "trader_2_id": bob.ID}, &trade))

	base := fmt.Sprintf("/api/v1/trades/%d", trade.ID)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/add-item",
		map[string]uint{"owner_id": alice.ID, "item_id": aliceThing.ID}, nil))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/add-item",
		map[string]uint{"owner_id": bob.ID, "item_id": bobThing.ID}, nil))

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, fmt.Sprintf("%s/accept?owner_id=%d", base, alice.ID), nil, nil))
	var result struct {
		Executed bool `json:"executed"`
	}
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPut, fmt.Sprintf("%s/accept?owner_id=%d", base, bob.ID), nil, &result))
	assert.True(t, result.Executed)

	var owned []struct {
		ID uint `json:"id"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/possessions/owner/%d", alice.ID), nil, &owned))
	require.Len(t, owned, 1)
	assert.Equal(t, bobThing.ID, owned[0].ID)

	assert.Equal(t, 0, srv.Registry.Len())
}

func TestStartBackgroundStopsWithContext(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	srv.StartBackground(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
}
