package commands

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigCmd prints the configuration the other commands would use.
type ConfigCmd struct {
	ConfigFlags `embed:""`

	Format string `help:"Output format" default:"yaml" enum:"yaml,json"`

	out io.Writer
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	bc, err := c.Resolve(globals.Dir, "development")
	if err != nil {
		return err
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	if c.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(bc)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(bc); err != nil {
		return err
	}
	return enc.Close()
}
