package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/inkwell/pkgstore"
)

// isolate keeps Load away from the developer's own config files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, pkgstore.DefaultRegistry, cfg.Registry)
	assert.Equal(t, pkgstore.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, 144.0, cfg.PPI)
	assert.Equal(t, "#ffffff", cfg.Background)
	assert.Empty(t, cfg.FontPaths)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "inkwell.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
cache_dir: /tmp/inkwell-cache
retries: 3
font_paths:
  - /usr/share/fonts
  - ./fonts
ppi: 300
background: transparent
workers: 4
`), 0o644))

	for _, arg := range []string{path, ""} {
		cfg, err := Load(arg)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "/tmp/inkwell-cache", cfg.CacheDir)
		assert.Equal(t, 3, cfg.Retries)
		assert.Equal(t, []string{"/usr/share/fonts", "./fonts"}, cfg.FontPaths)
		assert.Equal(t, 300.0, cfg.PPI)
		assert.Equal(t, 4, cfg.Workers)
		assert.NotEmpty(t, cfg.File)
	}
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("INKWELL_PPI", "72")
	t.Setenv("INKWELL_LOG_LEVEL", "error")
	t.Setenv("INKWELL_DATA_DIR", "/srv/packages")
	t.Setenv("INKWELL_FONT_PATHS", "/a"+string(os.PathListSeparator)+"/b")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 72.0, cfg.PPI)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "/srv/packages", cfg.DataDir)
	assert.Equal(t, []string{"/a", "/b"}, cfg.FontPaths)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ppi: -1\nlog_level: loud\nbackground: teal\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ppi")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "background")
}

func TestParseBackground(t *testing.T) {
	c, err := ParseBackground("transparent")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = ParseBackground("#FF8000")
	require.NoError(t, err)
	r, g, b, a := c.RGBA()
	assert.Equal(t, []uint32{0xffff, 0x8080, 0, 0xffff}, []uint32{r, g, b, a})

	c, err = ParseBackground("#00000080")
	require.NoError(t, err)
	_, _, _, a = c.RGBA()
	assert.Equal(t, uint32(0x8080), a)

	for _, s := range []string{"", "red", "#12345", "#gggggg"} {
		_, err := ParseBackground(s)
		assert.Error(t, err, s)
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	assert.Equal(t, log.DebugLevel, cfg.Logger(os.Stderr).GetLevel())
	cfg.LogLevel = "nonsense"
	assert.Equal(t, log.WarnLevel, cfg.Logger(os.Stderr).GetLevel())
}
