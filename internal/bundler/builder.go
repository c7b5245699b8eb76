package bundler

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

const indexTemplateName = "index"

//go:embed index.html.tmpl
var defaultIndexTemplate string

var ErrNotBuilt = errors.New("assets not built yet, call Build() first")

// EntryPoints resolves the entry glob relative to the project root.
func (p *Pipeline) EntryPoints() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.config.Root, p.config.EntryPointGlob))
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, errors.New("no entry points found")
	}

	entryPoints := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(p.config.Root, m)
		if err != nil {
			return nil, err
		}
		entryPoints = append(entryPoints, filepath.ToSlash(rel))
	}

	return entryPoints, nil
}

// Options returns the esbuild options shared by production builds and the dev server.
func (p *Pipeline) Options(dev bool) (api.BuildOptions, error) {
	entryPoints, err := p.EntryPoints()
	if err != nil {
		return api.BuildOptions{}, err
	}

	root, err := filepath.Abs(p.config.Root)
	if err != nil {
		return api.BuildOptions{}, err
	}

	minify := p.config.Minify && !dev

	mode := p.config.Mode
	if mode == "" {
		mode = cond(dev, "development", "production")
	}

	opts := api.BuildOptions{
		AbsWorkingDir:     root,
		EntryPoints:       entryPoints,
		Bundle:            true,
		Splitting:         true,
		Outdir:            p.config.OutputDir,
		PublicPath:        p.build.BasePath,
		EntryNames:        cond(dev, "assets/[name]", "assets/[name]-[hash]"),
		ChunkNames:        "assets/[name]-[hash]",
		AssetNames:        "assets/[name]-[hash]",
		Format:            api.FormatESModule,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         sourceMap(dev, p.config.SourceMap),
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
		Loader: map[string]api.Loader{
			".png":   api.LoaderFile,
			".jpg":   api.LoaderFile,
			".svg":   api.LoaderFile,
			".woff2": api.LoaderFile,
		},
		Define: map[string]string{
			"import.meta.env.BASE_URL": fmt.Sprintf("%q", p.build.BasePath),
			"import.meta.env.MODE":     fmt.Sprintf("%q", mode),
			"import.meta.env.DEV":      fmt.Sprint(dev),
			"import.meta.env.PROD":     fmt.Sprint(!dev),
		},
		Plugins: p.plugins,
	}

	return opts, nil
}

// Build runs esbuild with the configured settings and loads metadata
func (p *Pipeline) Build() error {
	opts, err := p.Options(false)
	if err != nil {
		return err
	}
	opts.Write = true

	log.Info().Strs("entrypoints", opts.EntryPoints).Str("base", p.build.BasePath).Msg("Building assets")

	outDir := p.outPath()
	if err := os.RemoveAll(outDir); err != nil {
		return err
	}

	result := api.Build(opts)

	for _, msg := range result.Warnings {
		log.Warn().Str("warning", msg.Text).Str("file", messageFile(msg)).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Str("file", messageFile(msg)).Msg("Build error")
		}
		return errors.New("esbuild failed with errors")
	}

	for _, file := range result.OutputFiles {
		log.Info().Str("file", file.Path).Msg("Built file")
	}

	if err := p.copyPublic(outDir); err != nil {
		return fmt.Errorf("failed to copy public dir: %w", err)
	}

	// Write metafile
	if err := os.WriteFile(filepath.Join(outDir, p.config.MetafileName), []byte(result.Metafile), 0600); err != nil {
		return err
	}

	if err := p.SetMetadata(result.Metafile); err != nil {
		return err
	}

	return p.WriteIndex(filepath.Join(outDir, "index.html"), opts.EntryPoints[0], false)
}

// LoadScripts returns the ordered list of script URLs needed for the given entrypoint
// and the main entrypoint URL
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	scripts := []string{}
	visited := make(map[string]bool)

	// Find the output file for this entrypoint
	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath && strings.HasSuffix(outputPath, ".js") {
			entrypoint := p.publicURL(outputPath)
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", errors.New("entrypoint not found in metadata")
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		// dynamic imports load on demand and are not preloaded
		if imp.External || imp.Kind == "dynamic-import" {
			continue
		}
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, p.publicURL(imp.Path))

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// Stylesheets returns the CSS bundle URLs for the given entrypoint.
func (p *Pipeline) Stylesheets(entryPointPath string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	styles := []string{}
	for _, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath && info.CSSBundle != "" {
			styles = append(styles, p.publicURL(info.CSSBundle))
		}
	}
	return styles, nil
}

// LoadTemplate parses the index template from the project root, falling back to the
// built-in page.
func (p *Pipeline) LoadTemplate() error {
	src := defaultIndexTemplate

	if p.config.IndexTemplate != "" {
		data, err := os.ReadFile(filepath.Join(p.config.Root, p.config.IndexTemplate))
		switch {
		case err == nil:
			src = string(data)
		case !errors.Is(err, os.ErrNotExist):
			return err
		}
	}

	tmpl, err := template.New(indexTemplateName).Funcs(templateFuncs).Parse(src)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.tmpl = tmpl
	p.mu.Unlock()
	return nil
}

// RenderIndex renders the index page for the entrypoint. live adds the reload listener.
func (p *Pipeline) RenderIndex(w io.Writer, entryPointPath string, live bool) error {
	scripts, entry, err := p.LoadScripts(entryPointPath)
	if err != nil {
		return err
	}

	styles, err := p.Stylesheets(entryPointPath)
	if err != nil {
		return err
	}

	p.mu.RLock()
	tmpl := p.tmpl
	p.mu.RUnlock()

	if tmpl == nil {
		return errors.New("template not loaded, call LoadTemplate first")
	}

	data := map[string]any{
		"Base":       p.build.BasePath,
		"Title":      p.config.Title,
		"Mode":       p.config.Mode,
		"Entry":      entry,
		"Preloads":   scripts[1:],
		"Scripts":    scripts,
		"Styles":     styles,
		"LiveReload": live,
	}

	return tmpl.ExecuteTemplate(w, indexTemplateName, data)
}

// WriteIndex renders the index page to a file.
func (p *Pipeline) WriteIndex(dest, entryPointPath string, live bool) error {
	f, err := os.Create(dest) //nolint:gosec
	if err != nil {
		return err
	}

	if err := p.RenderIndex(f, entryPointPath, live); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// publicURL maps an output path relative to the root onto its URL under the base path.
func (p *Pipeline) publicURL(outputPath string) string {
	rel, err := filepath.Rel(p.config.OutputDir, filepath.FromSlash(outputPath))
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = outputPath
	}
	return p.build.BasePath + path.Clean(filepath.ToSlash(rel))
}

func (p *Pipeline) outPath() string {
	return filepath.Join(p.config.Root, p.config.OutputDir)
}

func (p *Pipeline) copyPublic(outDir string) error {
	if p.config.PublicDir == "" {
		return nil
	}

	src := filepath.Join(p.config.Root, p.config.PublicDir)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return os.CopyFS(outDir, os.DirFS(src))
}

func messageFile(msg api.Message) string {
	if msg.Location == nil {
		return ""
	}
	return msg.Location.File
}

func sourceMap(dev, enabled bool) api.SourceMap {
	switch {
	case !enabled:
		return api.SourceMapNone
	case dev:
		return api.SourceMapInline
	default:
		return api.SourceMapLinked
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
