package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/io724/web/internal/bundler"
	"github.com/io724/web/internal/devserver"
	"github.com/io724/web/internal/logger"
	"github.com/io724/web/internal/plugins"
	zlog "github.com/rs/zerolog/log"
)

type ServeCmd struct {
	ConfigFlags `embed:""`

	Host  string `help:"Interface to listen on" default:"localhost" env:"IO724_HOST"`
	Entry string `help:"Entry point glob relative to the project root" default:"src/main.[jt]s"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	bc, err := c.Resolve(globals.Dir, "development")
	if err != nil {
		return err
	}

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting dev server")

	cfg := bundler.DefaultConfig()
	cfg.Root = globals.Dir
	cfg.Mode = c.ModeOr("development")
	cfg.EntryPointGlob = c.Entry

	pipeline, err := bundler.New(cfg, bc, plugins.NewRegistry())
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := devserver.New(pipeline, bc, devserver.Options{Host: c.Host, Logger: log})
	if _, err := srv.Start(ctx); err != nil {
		return err
	}

	return srv.Wait()
}
