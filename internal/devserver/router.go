package devserver

import (
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// liveReloadPath is the event stream esbuild publishes rebuilds on.
const liveReloadPath = "/esbuild"

// NewRouter mounts the dev server routes. Requests under base have the prefix stripped.
// Page navigations render index, files present in public are served from it and
// everything else goes to upstream. public may be nil.
func NewRouter(base string, upstream *url.URL, index http.Handler, public fs.FS) chi.Router {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	// stream server-sent events without buffering
	proxy.FlushInterval = -1

	r := chi.NewRouter()
	r.Handle(liveReloadPath, proxy)
	mountBase(r, base, spaHandler(index, publicFirst(public, proxy)))
	return r
}

// mountBase serves h under base and redirects requests outside of it.
func mountBase(r chi.Router, base string, h http.Handler) {
	prefix := strings.TrimSuffix(base, "/")

	if prefix != "" {
		redirect := func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, base, http.StatusFound)
		}
		r.Get("/", redirect)
		r.Get(prefix, redirect)
	}

	r.Handle(base+"*", http.StripPrefix(prefix, h))
}

// spaHandler sends extensionless paths to index and everything else to assets.
func spaHandler(index, assets http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "/" || p == "/index.html" || path.Ext(p) == "" {
			index.ServeHTTP(w, r)
			return
		}
		assets.ServeHTTP(w, r)
	})
}

// publicFirst serves regular files found in public and passes misses to next.
func publicFirst(public fs.FS, next http.Handler) http.Handler {
	if public == nil {
		return next
	}

	files := http.FileServerFS(public)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if info, err := fs.Stat(public, name); err == nil && info.Mode().IsRegular() {
			files.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
