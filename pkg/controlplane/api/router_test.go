package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/p2pci/pkg/catalog"
	"github.com/marmos91/p2pci/pkg/controlplane/api/handlers"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func seededCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	s := catalog.New()
	ctx := context.Background()
	_, err := s.Register(ctx, catalog.Peer{Hostname: "alpha", Port: 50001, OS: "Linux", SessionID: "a"},
		[]catalog.Document{{Number: 793, Title: "Transmission Control Protocol", PathHint: "rfcs"}})
	require.NoError(t, err)
	_, err = s.Register(ctx, catalog.Peer{Hostname: "beta", Port: 50002, OS: "Darwin", SessionID: "b"},
		[]catalog.Document{{Number: 791, Title: "Internet Protocol", PathHint: "rfcs"}, {Number: 793, Title: "TCP", PathHint: "rfcs"}})
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	ready := false
	r := NewRouter(seededCatalog(t), func() bool { return ready })

	rec, env := get(t, r, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", env.Status)

	var data handlers.HealthData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "p2pci", data.Service)
	assert.NotEmpty(t, data.StartedAt)

	rec, env = get(t, r, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", env.Status)

	ready = true
	rec, env = get(t, r, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	var rd handlers.ReadyData
	require.NoError(t, json.Unmarshal(env.Data, &rd))
	assert.Equal(t, handlers.ReadyData{Peers: 2, Documents: 3}, rd)
}

func TestCatalogRoutes(t *testing.T) {
	t.Parallel()
	r := NewRouter(seededCatalog(t), nil)

	t.Run("peers", func(t *testing.T) {
		rec, env := get(t, r, "/api/v1/peers")
		require.Equal(t, http.StatusOK, rec.Code)

		var peers []catalog.Peer
		require.NoError(t, json.Unmarshal(env.Data, &peers))
		require.Len(t, peers, 2)
		assert.Equal(t, 50001, peers[0].Port)
		assert.Equal(t, "Darwin", peers[1].OS)
	})

	t.Run("documents", func(t *testing.T) {
		_, env := get(t, r, "/api/v1/documents")
		var docs []catalog.Document
		require.NoError(t, json.Unmarshal(env.Data, &docs))
		assert.Len(t, docs, 3)
	})

	t.Run("documents by rfc", func(t *testing.T) {
		_, env := get(t, r, "/api/v1/documents?rfc=793")
		var docs []catalog.Document
		require.NoError(t, json.Unmarshal(env.Data, &docs))
		require.Len(t, docs, 2)
		assert.Equal(t, "TCP", docs[0].Title, "most recent first")
	})

	t.Run("unknown rfc is an empty list", func(t *testing.T) {
		rec, env := get(t, r, "/api/v1/documents?rfc=1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, string(env.Data))
	})

	t.Run("stats", func(t *testing.T) {
		_, env := get(t, r, "/api/v1/stats")
		var stats catalog.Stats
		require.NoError(t, json.Unmarshal(env.Data, &stats))
		assert.Equal(t, catalog.Stats{Peers: 2, Documents: 3}, stats)
	})
}

func TestProblemResponses(t *testing.T) {
	t.Parallel()
	r := NewRouter(catalog.New(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		code   int
	}{
		{"bad rfc", http.MethodGet, "/api/v1/documents?rfc=abc", http.StatusBadRequest},
		{"negative rfc", http.MethodGet, "/api/v1/documents?rfc=-3", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{"read-only", http.MethodPost, "/api/v1/peers", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, handlers.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

			var p handlers.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			assert.Equal(t, tt.code, p.Status)
		})
	}
}

func TestAPIConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg APIConfig
	cfg.ApplyDefaults()
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsEnabled())

	off := false
	cfg.Enabled = &off
	assert.False(t, cfg.IsEnabled())
}

func TestServerLifecycle(t *testing.T) {
	t.Parallel()

	srv := NewServer(APIConfig{Port: 0}, catalog.New(), nil)
	// Port 0 is replaced by the default; bind an ephemeral port instead.
	srv.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, testTimeout, testTick)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}

const (
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)
