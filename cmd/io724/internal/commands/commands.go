package commands

import (
	"github.com/io724/web/internal/buildconfig"
	"github.com/io724/web/internal/envfile"
)

type Globals struct {
	Debug   bool
	Dir     string
	Version string
}

// ConfigFlags are the configuration overrides shared by every command. Flags win over
// .env files, which win over the built-in defaults.
type ConfigFlags struct {
	Mode   string  `help:"Mode used to pick .env files (defaults to development for serve, production otherwise)" env:"IO724_MODE"`
	Base   *string `help:"Public base path assets are served under"`
	Port   *int    `help:"Development server port"`
	Open   bool    `help:"Open the browser when the development server starts" xor:"open"`
	NoOpen bool    `help:"Do not open the browser when the development server starts" xor:"open"`
}

// ModeOr returns the selected mode, or def when none was given.
func (f *ConfigFlags) ModeOr(def string) string {
	if f.Mode == "" {
		return def
	}
	return f.Mode
}

// openBrowser is nil unless --open or --no-open was passed.
func (f *ConfigFlags) openBrowser() *bool {
	switch {
	case f.Open:
		v := true
		return &v
	case f.NoOpen:
		v := false
		return &v
	default:
		return nil
	}
}

// Resolve loads the env files for the mode and builds the configuration.
func (f *ConfigFlags) Resolve(dir, defaultMode string) (buildconfig.BuildConfiguration, error) {
	env, err := envfile.Load(dir, f.ModeOr(defaultMode))
	if err != nil {
		return buildconfig.BuildConfiguration{}, err
	}

	overrides, err := envfile.Overrides(env)
	if err != nil {
		return buildconfig.BuildConfiguration{}, err
	}

	return buildconfig.New(envfile.Merge(overrides, buildconfig.Overrides{
		BasePath:    f.Base,
		Port:        f.Port,
		OpenBrowser: f.openBrowser(),
	}))
}
