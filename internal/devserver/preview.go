package devserver

import (
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/io724/web/internal/buildconfig"
	"github.com/io724/web/internal/logger"
	"github.com/klauspost/compress/gzhttp"
)

// DefaultPreviewPort is used by the preview command when no port is given.
const DefaultPreviewPort = 4173

// NewPreviewHandler serves a finished build from dir under the base path.
func NewPreviewHandler(base, dir string) http.Handler {
	r := chi.NewRouter()
	mountBase(r, base, gzhttp.GzipHandler(staticHandler(os.DirFS(dir))))
	return r
}

// Preview returns a server for the build in dir, listening on host and port.
func Preview(bc buildconfig.BuildConfiguration, dir, host string, port int, opts Options) *http.Server {
	opts = opts.withDefaults()
	handler := logger.NewHTTPRequests(opts.Logger)(NewPreviewHandler(bc.BasePath, dir))
	return configureHTTPServer(net.JoinHostPort(host, strconv.Itoa(port)), handler)
}

// staticHandler serves files from fsys and falls back to index.html for client side routes.
func staticHandler(fsys fs.FS) http.Handler {
	files := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean(r.URL.Path)
		if name != "/" && path.Ext(name) == "" {
			if _, err := fs.Stat(fsys, name[1:]); errors.Is(err, fs.ErrNotExist) {
				http.ServeFileFS(w, r, fsys, "index.html")
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}
