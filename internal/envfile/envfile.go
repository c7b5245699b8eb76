// Package envfile loads mode specific .env files and maps them onto configuration overrides.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/io724/web/internal/buildconfig"
	"github.com/joho/godotenv"
)

const (
	// Prefix marks variables read by the toolchain.
	Prefix = "IO724_"

	KeyBase = Prefix + "BASE"
	KeyPort = Prefix + "PORT"
	KeyOpen = Prefix + "OPEN"
)

// Files returns the env files for mode in increasing priority.
func Files(mode string) []string {
	files := []string{".env"}
	// local overrides are ignored when running tests so results stay reproducible
	if mode != "test" {
		files = append(files, ".env.local")
	}
	if mode != "" {
		files = append(files, ".env."+mode)
		if mode != "test" {
			files = append(files, ".env."+mode+".local")
		}
	}
	return files
}

// Load reads the env files for mode from dir and merges prefixed process
// environment variables on top. Missing files are skipped.
func Load(dir, mode string) (map[string]string, error) {
	env := make(map[string]string)

	for _, name := range Files(mode) {
		path := filepath.Join(dir, name)

		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		for k, v := range values {
			env[k] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, Prefix) {
			env[k] = v
		}
	}

	return env, nil
}

// Overrides converts the recognised keys into provider overrides.
func Overrides(env map[string]string) (buildconfig.Overrides, error) {
	var o buildconfig.Overrides

	if v, ok := env[KeyBase]; ok {
		o.BasePath = &v
	}

	if v, ok := env[KeyPort]; ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return buildconfig.Overrides{}, buildconfig.Invalid("server.port", v, "not an integer")
		}
		o.Port = &port
	}

	if v, ok := env[KeyOpen]; ok && v != "" {
		open, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return buildconfig.Overrides{}, buildconfig.Invalid("server.open", v, "not a boolean")
		}
		o.OpenBrowser = &open
	}

	return o, nil
}

// Merge layers the non-nil fields of top over base.
func Merge(base, top buildconfig.Overrides) buildconfig.Overrides {
	if top.BasePath != nil {
		base.BasePath = top.BasePath
	}
	if top.Port != nil {
		base.Port = top.Port
	}
	if top.OpenBrowser != nil {
		base.OpenBrowser = top.OpenBrowser
	}
	return base
}
