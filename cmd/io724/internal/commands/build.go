package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/io724/web/internal/bundler"
	"github.com/io724/web/internal/logger"
	"github.com/io724/web/internal/plugins"
	zlog "github.com/rs/zerolog/log"
)

type BuildCmd struct {
	ConfigFlags `embed:""`

	OutDir      string `help:"Output directory relative to the project root" default:"dist"`
	Entry       string `help:"Entry point glob relative to the project root" default:"src/main.[jt]s"`
	NoMinify    bool   `help:"Disable minification"`
	NoSourcemap bool   `help:"Disable source maps"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	bc, err := c.Resolve(globals.Dir, "production")
	if err != nil {
		return err
	}

	cfg := bundler.DefaultConfig()
	cfg.Root = globals.Dir
	cfg.Mode = c.ModeOr("production")
	cfg.OutputDir = c.OutDir
	cfg.EntryPointGlob = c.Entry
	cfg.Minify = !c.NoMinify
	cfg.SourceMap = !c.NoSourcemap

	pipeline, err := bundler.New(cfg, bc, plugins.NewRegistry())
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}

	started := time.Now()
	if err := pipeline.Build(); err != nil {
		return fmt.Errorf("failed to build assets: %w", err)
	}

	log.Info().
		Str("version", globals.Version).
		Str("base", bc.BasePath).
		Str("out_dir", c.OutDir).
		Dur("duration", time.Since(started)).
		Msg("Build complete")

	return nil
}
