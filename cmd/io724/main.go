package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/io724/web/cmd/io724/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool   `help:"Enable debug mode."`
		Dir     string `help:"Project root directory." default:"." type:"existingdir" env:"IO724_DIR"`
		Version kong.VersionFlag
		Build   commands.BuildCmd   `cmd:"" help:"Build production assets"`
		Serve   commands.ServeCmd   `cmd:"" help:"Start the development server" default:"1"`
		Preview commands.PreviewCmd `cmd:"" help:"Serve a production build locally"`
		Config  commands.ConfigCmd  `cmd:"" help:"Print the resolved configuration"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("io724"),
		kong.Description("Build and serve the io724 front-end."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Dir: cli.Dir, Version: version})
	cmd.FatalIfErrorf(err)
}
