package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/io724/web/internal/devserver"
	"github.com/io724/web/internal/logger"
)

type PreviewCmd struct {
	ConfigFlags `embed:""`

	Host        string `help:"Interface to listen on" default:"localhost" env:"IO724_HOST"`
	PreviewPort int    `help:"Preview server port" default:"4173" env:"IO724_PREVIEW_PORT"`
	OutDir      string `help:"Build directory relative to the project root" default:"dist"`
}

func (c *PreviewCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	bc, err := c.Resolve(globals.Dir, "production")
	if err != nil {
		return err
	}

	dir := filepath.Join(globals.Dir, c.OutDir)
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		return fmt.Errorf("no build found in %s, run the build command first", dir)
	}

	srv := devserver.Preview(bc, dir, c.Host, c.PreviewPort, devserver.Options{Logger: log})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown preview server")
		}
	}()

	log.Info().Str("addr", srv.Addr).Str("base", bc.BasePath).Str("dir", dir).Msg("Starting preview server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
