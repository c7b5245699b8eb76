package devserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePreviewBuild(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>preview</html>"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "main.js"),
		[]byte(strings.Repeat("console.log('io724');\n", 400)), 0600))
	return dir
}

func TestNewPreviewHandler(t *testing.T) {
	handler := NewPreviewHandler("/io724/", writePreviewBuild(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/io724/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/io724/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "preview")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/io724/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "preview")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/io724/assets/missing.js", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewPreviewHandler_gzip(t *testing.T) {
	handler := NewPreviewHandler("/io724/", writePreviewBuild(t))

	req := httptest.NewRequest(http.MethodGet, "/io724/assets/main.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}
