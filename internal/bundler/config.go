package bundler

type Config struct {
	// Project root, entry points and output paths are relative to it
	Root string
	// Entry point glob pattern (e.g., "src/main.[jt]s")
	EntryPointGlob string
	// Output directory for built files
	OutputDir string
	// Static files copied verbatim into OutputDir
	PublicDir string
	// Metafile name (relative to OutputDir)
	MetafileName string
	// HTML template rendered to index.html, falls back to the built-in page when missing
	IndexTemplate string
	// Page title passed to the index template
	Title string
	// Mode exposed to client code as import.meta.env.MODE, derived from dev when empty
	Mode string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Root:           ".",
		EntryPointGlob: "src/main.[jt]s",
		OutputDir:      "dist",
		PublicDir:      "public",
		MetafileName:   "meta.json",
		IndexTemplate:  "index.html",
		Title:          "io724",
		Minify:         true,
		SourceMap:      true,
	}
}
