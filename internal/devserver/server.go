// Package devserver runs the live-reloading development server and the preview server.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/fsnotify/fsnotify"
	"github.com/io724/web/internal/buildconfig"
	"github.com/io724/web/internal/bundler"
	"github.com/io724/web/internal/logger"
	"github.com/pkg/browser"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type Options struct {
	// Interface the public listener binds to
	Host string
	// Opens url in a browser, defaults to the system browser
	Open func(url string) error
	// How long to wait for the server to answer before giving up on the browser
	ReadyTimeout time.Duration
	Logger       zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = "localhost"
	}
	if o.Open == nil {
		o.Open = browser.OpenURL
	}
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = 10 * time.Second
	}
	return o
}

// Server is a development server backed by an incremental esbuild context.
type Server struct {
	pipeline *bundler.Pipeline
	build    buildconfig.BuildConfiguration
	opts     Options

	esbuild    api.BuildContext
	httpServer *http.Server
	watcher    *fsnotify.Watcher
	entry      string

	done     chan struct{}
	serveErr error
	stop     sync.Once
}

func New(pipeline *bundler.Pipeline, bc buildconfig.BuildConfiguration, opts Options) *Server {
	return &Server{
		pipeline: pipeline,
		build:    bc.Clone(),
		opts:     opts.withDefaults(),
		done:     make(chan struct{}),
	}
}

// Start builds once, starts watching and serving, and returns the public URL.
func (s *Server) Start(ctx context.Context) (string, error) {
	log := s.opts.Logger

	opts, err := s.pipeline.Options(true)
	if err != nil {
		return "", err
	}
	s.entry = opts.EntryPoints[0]
	opts.Plugins = append(append([]api.Plugin{}, opts.Plugins...), s.metadataPlugin())

	esctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		for _, msg := range ctxErr.Errors {
			log.Error().Str("error", msg.Text).Msg("Build setup error")
		}
		return "", errors.New("failed to create esbuild context")
	}
	s.esbuild = esctx

	// errors are logged by the metadata plugin, the server still starts so fixes get picked up
	esctx.Rebuild()

	if err := esctx.Watch(api.WatchOptions{}); err != nil {
		s.dispose()
		return "", fmt.Errorf("failed to watch sources: %w", err)
	}

	served, err := esctx.Serve(api.ServeOptions{Host: "127.0.0.1"})
	if err != nil {
		s.dispose()
		return "", fmt.Errorf("failed to start esbuild server: %w", err)
	}

	upstream := &url.URL{Scheme: "http", Host: net.JoinHostPort("127.0.0.1", strconv.Itoa(int(served.Port)))}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.build.DevServer.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.dispose()
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	handler := NewRouter(s.build.BasePath, upstream, http.HandlerFunc(s.serveIndex), s.publicFS())
	s.httpServer = configureHTTPServer(addr, logger.NewHTTPRequests(log)(withCORS(handler)))

	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr = err
		}
	}()

	if err := s.watchTemplate(); err != nil {
		log.Warn().Err(err).Msg("Index template changes will not be picked up")
	}

	publicURL := (&url.URL{Scheme: "http", Host: addr, Path: s.build.BasePath}).String()

	log.Info().
		Str("url", publicURL).
		Str("upstream", upstream.String()).
		Strs("plugins", s.build.PluginNames()).
		Msg("Dev server ready")

	if s.build.DevServer.OpenBrowser {
		go s.openWhenReady(ctx, publicURL)
	}

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown dev server")
			}
		case <-s.done:
		}
	}()

	return publicURL, nil
}

// Wait blocks until the server has stopped.
func (s *Server) Wait() error {
	<-s.done
	return s.serveErr
}

// Shutdown stops the listener, the template watcher and the esbuild context.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stop.Do(func() {
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		s.dispose()
	})
	return err
}

func (s *Server) dispose() {
	if s.esbuild != nil {
		s.esbuild.Dispose()
	}
}

// publicFS returns the static dir served alongside build outputs, as a production build
// copies it into the output directory.
func (s *Server) publicFS() fs.FS {
	cfg := s.pipeline.Config()
	if cfg.PublicDir == "" {
		return nil
	}
	return os.DirFS(filepath.Join(cfg.Root, cfg.PublicDir))
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	if err := s.pipeline.RenderIndex(w, s.entry, true); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render index")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// metadataPlugin refreshes the pipeline metadata after every rebuild so the index page
// always references the current chunks.
func (s *Server) metadataPlugin() api.Plugin {
	log := s.opts.Logger

	return api.Plugin{
		Name: "io724-metadata",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				for _, msg := range result.Warnings {
					log.Warn().Str("warning", msg.Text).Msg("Build warning")
				}
				if len(result.Errors) > 0 {
					for _, msg := range result.Errors {
						log.Error().Str("error", msg.Text).Msg("Build error")
					}
					return api.OnEndResult{}, nil
				}

				if err := s.pipeline.SetMetadata(result.Metafile); err != nil {
					log.Error().Err(err).Msg("Failed to parse metafile")
					return api.OnEndResult{}, nil
				}

				log.Debug().Int("outputs", len(result.OutputFiles)).Msg("Rebuilt")
				return api.OnEndResult{}, nil
			})
		},
	}
}

// openWhenReady polls url until it answers and then opens it in the browser.
func (s *Server) openWhenReady(ctx context.Context, target string) {
	log := s.opts.Logger

	if err := WaitReady(ctx, target, s.opts.ReadyTimeout); err != nil {
		log.Warn().Err(err).Str("url", target).Msg("Dev server did not become ready, please open it manually")
		return
	}

	log.Info().Str("url", target).Msg("Opening browser")
	if err := s.opts.Open(target); err != nil {
		log.Warn().Err(err).Str("url", target).Msg("Failed to open browser, please open it manually")
	}
}

// WaitReady retries GET requests against target with exponential backoff until the
// server responds below 500 or timeout passes.
func WaitReady(ctx context.Context, target string, timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return struct{}{}, fmt.Errorf("server not ready: %s", resp.Status)
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
	)
	return err
}

// withCORS allows module scripts to be loaded from any origin.
func withCORS(h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	})
	return middleware.Handler(h)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		// live reload keeps event streams open, so no write timeout
		IdleTimeout:    5 * time.Minute,
		MaxHeaderBytes: 8 * 1024, // 8KiB
	}
}
