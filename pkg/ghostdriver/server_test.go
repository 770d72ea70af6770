package ghostdriver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/odvcencio/ghostdriver/pkg/config"
)

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *SessionManager, *Router) {
	t.Helper()
	rt := fixtureRuntime()
	m := newTestManager(t, rt)
	r := newTestRouter(t, m)
	return NewServer(cfg, r, m, rt, zaptest.NewLogger(t)), m, r
}

func TestServerHandlerURLPrefix(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ServerConfig{URLPrefix: "/wd/hub/", Metrics: true})
	h := srv.Handler()

	rec, env := call(t, h, http.MethodGet, "/wd/hub/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, env.Status)

	rec, env = call(t, h, http.MethodPost, "/wd/hub/session", `{"desiredCapabilities":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	id := *env.SessionID
	rec, _ = call(t, h, http.MethodGet, "/wd/hub/session/"+id+"/window_handle", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotZero(t, env.Status)

	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestServerHandlerNoPrefix(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ServerConfig{})
	h := srv.Handler()

	rec, _ := call(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics disabled")
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ServerConfig{Metrics: true})
	h := srv.Handler()

	call(t, h, http.MethodGet, "/status", "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ghostdriver_http_responses_total")

	rec, env := call(t, h, http.MethodPost, "/metrics", "")
	assert.Contains(t, []int{http.StatusNotFound, http.StatusMethodNotAllowed}, rec.Code)
	assert.NotZero(t, env.Status)
}

func TestServerH2CHandlerServesHTTP1(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ServerConfig{H2C: true})
	rec, _ := call(t, srv.Handler(), http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func startServer(t *testing.T, ctx context.Context, srv *Server) (string, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	return ln.Addr().String(), done
}

func waitServe(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func TestServerShutdownCommand(t *testing.T) {
	srv, m, _ := newTestServer(t, config.ServerConfig{ShutdownTimeout: 2 * time.Second})
	addr, done := startServer(t, context.Background(), srv)

	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	base := "http://" + addr

	resp, err := client.Post(base+"/session", "application/json", nil)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, m.Len())

	resp, err = client.Get(base + "/shutdown")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), "response must be complete: %q", body)
	assert.Zero(t, env.Status)

	require.NoError(t, waitServe(t, done))
	assert.Zero(t, m.Len(), "sessions are destroyed on shutdown")

	_, err = net.DialTimeout("tcp", addr, 500*time.Millisecond)
	assert.Error(t, err, "listener must be closed")
}

func TestServerStopsOnContextCancel(t *testing.T) {
	srv, m, _ := newTestServer(t, config.ServerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	addr, done := startServer(t, ctx, srv)

	client := &http.Client{Timeout: 5 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/status")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = m.CreateSession(ctx, nil)
	require.NoError(t, err)

	cancel()
	require.NoError(t, waitServe(t, done))
	assert.Zero(t, m.Len())
	assert.False(t, m.Accepting())
}

func TestServerStartListenError(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ServerConfig{Bind: "256.0.0.1:bad"})
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}

func TestNormalizePrefix(t *testing.T) {
	for in, want := range map[string]string{
		"":         "",
		"/":        "",
		" /wd/hub": "/wd/hub",
		"wd/hub/":  "/wd/hub",
		"/wd/hub":  "/wd/hub",
	} {
		assert.Equal(t, want, normalizePrefix(in), in)
	}
}
