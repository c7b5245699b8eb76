package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/io724/web/internal/buildconfig"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestFiles(t *testing.T) {
	require.Equal(t, []string{".env", ".env.local"}, Files(""))
	require.Equal(t,
		[]string{".env", ".env.local", ".env.production", ".env.production.local"},
		Files("production"))
	require.Equal(t, []string{".env", ".env.test"}, Files("test"))
}

func TestLoad_priority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "IO724_BASE=/from-env/\nIO724_PORT=4000\nOTHER=x\n")
	writeFile(t, dir, ".env.local", "IO724_PORT=4001\n")
	writeFile(t, dir, ".env.production", "IO724_BASE=/prod/\n")

	env, err := Load(dir, "production")
	require.NoError(t, err)

	require.Equal(t, "/prod/", env[KeyBase])
	require.Equal(t, "4001", env[KeyPort])
	require.Equal(t, "x", env["OTHER"])
}

func TestLoad_testModeSkipsLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "IO724_PORT=4000\n")
	writeFile(t, dir, ".env.local", "IO724_PORT=4001\n")

	env, err := Load(dir, "test")
	require.NoError(t, err)
	require.Equal(t, "4000", env[KeyPort])
}

func TestLoad_processEnvWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "IO724_OPEN=true\n")
	t.Setenv(KeyOpen, "false")

	env, err := Load(dir, "development")
	require.NoError(t, err)
	require.Equal(t, "false", env[KeyOpen])
}

func TestLoad_missingDir(t *testing.T) {
	env, err := Load(filepath.Join(t.TempDir(), "missing"), "development")
	require.NoError(t, err)
	require.NotContains(t, env, KeyBase)
}

func TestOverrides(t *testing.T) {
	o, err := Overrides(map[string]string{
		KeyBase: "/other/",
		KeyPort: " 8080 ",
		KeyOpen: "0",
	})
	require.NoError(t, err)
	require.Equal(t, "/other/", *o.BasePath)
	require.Equal(t, 8080, *o.Port)
	require.False(t, *o.OpenBrowser)

	cfg, err := buildconfig.New(o)
	require.NoError(t, err)
	require.Equal(t, "/other/", cfg.BasePath)
	require.Equal(t, 8080, cfg.DevServer.Port)
}

func TestOverrides_invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "port not a number", env: map[string]string{KeyPort: "abc"}},
		{name: "open not a bool", env: map[string]string{KeyOpen: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Overrides(tt.env)
			require.ErrorIs(t, err, buildconfig.ErrInvalidConfiguration)
		})
	}
}

func TestOverrides_emptyBaseIsRejectedByProvider(t *testing.T) {
	o, err := Overrides(map[string]string{KeyBase: ""})
	require.NoError(t, err)

	_, err = buildconfig.New(o)
	require.ErrorIs(t, err, buildconfig.ErrInvalidConfiguration)
}

func TestMerge(t *testing.T) {
	base := "/a/"
	top := "/b/"
	port := 1234

	merged := Merge(
		buildconfig.Overrides{BasePath: &base, Port: &port},
		buildconfig.Overrides{BasePath: &top},
	)
	require.Equal(t, "/b/", *merged.BasePath)
	require.Equal(t, 1234, *merged.Port)
	require.Nil(t, merged.OpenBrowser)
}
