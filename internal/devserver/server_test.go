package devserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/io724/web/internal/buildconfig"
	"github.com/io724/web/internal/bundler"
	"github.com/io724/web/internal/plugins"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func newProject(t *testing.T) bundler.Config {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "public"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "public", "robots.txt"), []byte("User-agent: *\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.js"),
		[]byte("import App from './App.vue'\nconsole.log(App.name)\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "App.vue"),
		[]byte("<template><p>dev</p></template>\n<script>\nexport default { name: 'DevApp' }\n</script>\n"), 0600))

	cfg := bundler.DefaultConfig()
	cfg.Root = root
	return cfg
}

func newTestServer(t *testing.T, cfg bundler.Config, port int, open bool, opener func(string) error) *Server {
	t.Helper()

	bc, err := buildconfig.New(buildconfig.Overrides{Port: &port, OpenBrowser: &open})
	require.NoError(t, err)

	pipeline, err := bundler.New(cfg, bc, plugins.NewRegistry())
	require.NoError(t, err)

	return New(pipeline, bc, Options{
		Host:         "127.0.0.1",
		Open:         opener,
		ReadyTimeout: 5 * time.Second,
		Logger:       zerolog.Nop(),
	})
}

func get(t *testing.T, target string) (int, string) {
	t.Helper()

	resp, err := http.Get(target) //nolint:gosec,noctx
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Start(t *testing.T) {
	port := freePort(t)

	var opened atomic.Value
	openedCh := make(chan struct{})
	srv := newTestServer(t, newProject(t), port, true, func(url string) error {
		opened.Store(url)
		close(openedCh)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publicURL, err := srv.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:"+strconv.Itoa(port)+"/io724/", publicURL)

	status, body := get(t, publicURL)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `<script type="module" src="/io724/assets/main.js"></script>`)
	require.Contains(t, body, `new EventSource("/esbuild")`)

	status, body = get(t, publicURL+"assets/main.js")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "DevApp")

	status, body = get(t, publicURL+"robots.txt")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "User-agent: *\n", body)

	select {
	case <-openedCh:
		require.Equal(t, publicURL, opened.Load())
	case <-time.After(10 * time.Second):
		t.Fatal("browser was not opened")
	}

	cancel()
	require.NoError(t, srv.Wait())
}

func TestServer_StartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := newTestServer(t, newProject(t), port, false, nil)

	_, err = srv.Start(context.Background())
	require.ErrorContains(t, err, "failed to listen")
}

func TestWaitReady(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	require.NoError(t, WaitReady(context.Background(), upstream.URL, 10*time.Second))
	require.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitReady_timeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	require.Error(t, WaitReady(context.Background(), upstream.URL, 200*time.Millisecond))
}
