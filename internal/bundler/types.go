package bundler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/io724/web/internal/buildconfig"
	"github.com/io724/web/internal/plugins"
)

var ErrInvalidOutputDir = errors.New("invalid output directory")

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external"`
}

// Pipeline manages the asset build process and script loading
type Pipeline struct {
	config   Config
	build    buildconfig.BuildConfiguration
	plugins  []api.Plugin
	metadata *BuildMetadata
	tmpl     *template.Template
	mu       sync.RWMutex
}

// New creates a pipeline for bc, resolving its plugins against reg and loading the
// index template.
func New(config Config, bc buildconfig.BuildConfiguration, reg *plugins.Registry) (*Pipeline, error) {
	if err := bc.Validate(); err != nil {
		return nil, err
	}

	if err := validateOutputDir(config.OutputDir); err != nil {
		return nil, err
	}

	resolved, err := reg.Resolve(bc.Plugins)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:  config,
		build:   bc.Clone(),
		plugins: resolved,
	}

	if err := p.LoadTemplate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// BasePath returns the public path assets are served under.
func (p *Pipeline) BasePath() string {
	return p.build.BasePath
}

// SetMetadata parses an esbuild metafile and caches it for script lookups.
func (p *Pipeline) SetMetadata(metafile string) error {
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(metafile), &metadata); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.metadata = &metadata
	return nil
}

// templateFuncs are available to project index templates.
var templateFuncs = template.FuncMap{
	"marshal": marshal,
	"safe": func(s string) template.HTML {
		return template.HTML(s) //nolint:gosec
	},
}

// validateOutputDir only accepts a directory strictly inside the project root, since Build
// empties it before writing.
func validateOutputDir(dir string) error {
	if dir == "" || filepath.IsAbs(dir) {
		return fmt.Errorf("%w: %q must be a relative path inside the project root", ErrInvalidOutputDir, dir)
	}

	clean := filepath.Clean(dir)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %q must be a directory inside the project root", ErrInvalidOutputDir, dir)
	}

	return nil
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
