package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/config"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRoots []string

func (r staticRoots) ListRoots(context.Context) []string { return r }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Library.DataDir = t.TempDir()
	cfg.Library.HomeLibrary = filepath.Join(cfg.Library.DataDir, "library")
	cfg.Auth.KeyBits = 1024
	cfg.RateLimit.Enabled = false

	srv, err := NewServer(context.Background(), cfg, Options{
		Logger: logging.NewNop(),
		Roots:  staticRoots{cfg.Library.HomeLibrary},
	})
	require.NoError(t, err)
	return srv
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/plugin", http.StatusOK},
		{"/api/v1/auth/user", http.StatusOK},
		{"/api/v1/library/installed", http.StatusOK},
		{"/api/v1/library/items", http.StatusOK},
		{"/api/v1/library/items/ghost", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestMetricsRecordRequests(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/plugin", nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), `path="/api/v1/plugin"`)
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/health", ln.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
