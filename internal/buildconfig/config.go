package buildconfig

import (
	"strings"
)

const (
	DefaultBasePath = "/io724/"
	DefaultPort     = 3000
	DefaultOpen     = true

	// VuePlugin is the single-file component plugin registered by default.
	VuePlugin = "vue"

	minPort = 1
	maxPort = 65535
)

// Default returns the configuration with no overrides applied.
func Default() BuildConfiguration {
	return BuildConfiguration{
		BasePath: DefaultBasePath,
		Plugins:  []PluginDescriptor{{Name: VuePlugin}},
		DevServer: DevServer{
			Port:        DefaultPort,
			OpenBrowser: DefaultOpen,
		},
	}
}

// New applies the overrides on top of Default and validates the result. It performs no I/O.
func New(o Overrides) (BuildConfiguration, error) {
	cfg := Default()

	if o.BasePath != nil {
		cfg.BasePath = NormalizeBasePath(*o.BasePath)
	}
	if o.Port != nil {
		cfg.DevServer.Port = *o.Port
	}
	if o.OpenBrowser != nil {
		cfg.DevServer.OpenBrowser = *o.OpenBrowser
	}

	if err := cfg.Validate(); err != nil {
		return BuildConfiguration{}, err
	}

	return cfg, nil
}

// NormalizeBasePath appends the trailing slash required for relative asset resolution.
// Empty and relative values are returned untouched so Validate can reject them.
func NormalizeBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || !strings.HasPrefix(base, "/") {
		return base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// Validate checks the invariants the bundler relies on.
func (c BuildConfiguration) Validate() error {
	switch {
	case c.BasePath == "":
		return invalid("base", c.BasePath, "must not be empty")
	case !strings.HasPrefix(c.BasePath, "/"):
		return invalid("base", c.BasePath, "must start with /")
	case !strings.HasSuffix(c.BasePath, "/"):
		return invalid("base", c.BasePath, "must end with /")
	case strings.Contains(c.BasePath, "//"):
		return invalid("base", c.BasePath, "must not contain empty segments")
	}

	if c.DevServer.Port < minPort || c.DevServer.Port > maxPort {
		return invalid("server.port", c.DevServer.Port, "must be between 1 and 65535")
	}

	if len(c.Plugins) == 0 {
		return invalid("plugins", c.Plugins, "at least one plugin is required")
	}

	seen := make(map[string]bool, len(c.Plugins))
	for _, p := range c.Plugins {
		if p.Name == "" {
			return invalid("plugins", p.Name, "plugin name must not be empty")
		}
		if seen[p.Name] {
			return invalid("plugins", p.Name, "plugin registered twice")
		}
		seen[p.Name] = true
	}

	return nil
}
