package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybermarket/internal/handler"
	"cybermarket/internal/metrics"
	"cybermarket/internal/middleware"
	"cybermarket/internal/session"
)

type fakeStore struct{}

func (fakeStore) Stats(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"backend": "sqlite", "merchant_rows": 2}, nil
}

type fakeConns []string

func (c fakeConns) LiveConnections() []string { return c }

func newTestRouter(t *testing.T, key string) http.Handler {
	t.Helper()

	sessions := session.NewMemoryRegistry()
	require.NoError(t, sessions.Bind(context.Background(), session.KindClient, "c1", 7))

	m := metrics.New()
	m.ObserveCommand("CLIENT_LOGIN", 200)
	conns := fakeConns{"c1", "c2"}

	return New(Config{
		Handler:        handler.New("cybermarket", "test", conns, fakeStore{}),
		AdminHandler:   handler.NewAdminHandler(fakeStore{}, sessions, conns, "sqlite", "memory"),
		AuthMiddleware: middleware.NewLoginKeyMiddleware(key),
		Metrics:        promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
	})
}

func get(h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(newTestRouter(t, ""), "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestStatus_ReportsConnections(t *testing.T) {
	rec := get(newTestRouter(t, ""), "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data handler.StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.LiveConnections)
	assert.Equal(t, "cybermarket", body.Data.Service)
}

func TestAdminStats_RequiresKey(t *testing.T) {
	r := newTestRouter(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/admin/stats", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(r, "/api/v1/admin/stats", map[string]string{"X-Login-Key": "wrong"}).Code)

	rec := get(r, "/api/v1/admin/stats", map[string]string{"X-Login-Key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body.Data["live_connections"])
	assert.Equal(t, "sqlite", body.Data["store_type"])

	sessions := body.Data["sessions"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"client": float64(1), "merchant": float64(0)}, sessions["bound"])
}

func TestAdminStats_OpenWithoutKey(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(newTestRouter(t, ""), "/api/v1/admin/stats", nil).Code)
}

func TestMetrics(t *testing.T) {
	rec := get(newTestRouter(t, ""), "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cybermarket_commands_total{status="200",verb="CLIENT_LOGIN"} 1`)
}

func TestRequestID_KeepsValidCallerID(t *testing.T) {
	r := newTestRouter(t, "")

	const id = "0b5e2c55-3d4f-4a57-9d8e-0f6c7a1b2c3d"
	assert.Equal(t, id, get(r, "/api/v1/health", map[string]string{"X-Request-ID": id}).Header().Get("X-Request-ID"))

	minted := get(r, "/api/v1/health", map[string]string{"X-Request-ID": "not a uuid"}).Header().Get("X-Request-ID")
	assert.NotEqual(t, "not a uuid", minted)
	assert.Len(t, minted, 36)
}
