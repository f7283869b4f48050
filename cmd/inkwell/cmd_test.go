package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI in a scratch directory with no user config.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func scratch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("HOME", dir)
	t.Setenv("INKWELL_CACHE_DIR", filepath.Join(dir, ".cache"))
	t.Chdir(dir)
	return dir
}

const twoPages = `doc Letter v1 {
  page A5 { flow { text { "Dear ${_CUSTOMER.name}, from ${sys.inputs.from}" } } }
  page A5 { flow { text { "page two" } } }
}`

func TestCompilePDF(t *testing.T) {
	dir := scratch(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "letter.papyrus"), []byte(twoPages), 0o644))

	stdout, _, err := run(t, "", "compile", "letter.papyrus",
		"--data", `_CUSTOMER={"name":"ACME"}`, "--input", "from=ada")
	require.NoError(t, err)
	assert.Equal(t, "letter.pdf\n", stdout)

	data, err := os.ReadFile(filepath.Join(dir, "letter.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestCompilePagesFromStdin(t *testing.T) {
	scratch(t)

	stdout, _, err := run(t, twoPages, "compile", "-",
		"--data", `_CUSTOMER={"name":"ACME"}`, "--input", "from=ada",
		"--out", "pages/p{n}.png", "--ppi", "24")
	require.NoError(t, err)
	assert.Equal(t, "pages/p1.png\npages/p2.png\n", stdout)
	assert.FileExists(t, "pages/p2.png")

	stdout, _, err = run(t, twoPages, "compile", "-", "--format", "svg",
		"--data", `_CUSTOMER={"name":"ACME"}`, "--input", "from=ada")
	require.NoError(t, err)
	assert.Equal(t, "out-1.svg\nout-2.svg\n", stdout)
}

func TestCompileReportsDiagnostics(t *testing.T) {
	scratch(t)

	_, stderr, err := run(t, twoPages, "compile", "-", "--input", "from=ada")
	require.Error(t, err)
	assert.Contains(t, stderr, "_CUSTOMER")
	assert.Contains(t, stderr, "/<content>:2:")
	assert.NoFileExists(t, "out.pdf")
}

func TestCompileDebugJSON(t *testing.T) {
	scratch(t)

	_, _, err := run(t, `doc T v1 { page A5 { flow { text { "hi" } } } }`,
		"compile", "-", "--debug", "debug/layout.json")
	require.NoError(t, err)

	raw, err := os.ReadFile("debug/layout.json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, string(raw), `"hi"`)
}

func TestCompileRejectsBadFlags(t *testing.T) {
	scratch(t)

	for _, args := range [][]string{
		{"compile", "-", "--format", "docx"},
		{"compile", "-", "--out", "x.jpg"},
		{"compile", "-", "--input", "novalue"},
		{"compile", "-", "--data", "_X={"},
		{"compile", "-", "--background", "teal"},
		{"compile", "missing.papyrus"},
	} {
		_, _, err := run(t, `doc T v1 { }`, args...)
		assert.Error(t, err, strings.Join(args, " "))
	}
}

func TestFontsList(t *testing.T) {
	scratch(t)

	stdout, _, err := run(t, "", "fonts", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "FAMILY")
	assert.Contains(t, stdout, "(embedded)")

	stdout, _, err = run(t, "", "fonts", "list", "--families")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(strings.TrimSpace(stdout), "\n"), "Go")
}

func TestPackagesResolveLocal(t *testing.T) {
	dir := scratch(t)
	data := filepath.Join(dir, "data")
	pkg := filepath.Join(data, "local", "brand", "1.0.0")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	t.Setenv("INKWELL_DATA_DIR", data)

	stdout, _, err := run(t, "", "packages", "resolve", "@local/brand:1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "@local/brand:1.0.0\t"+pkg+"\n", stdout)

	_, _, err = run(t, "", "packages", "resolve", "@local/missing:1.0.0", "not-a-ref")
	assert.Error(t, err)

	stdout, _, err = run(t, "", "pkg", "dir")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".cache")+"\n", stdout)
}

func TestConfigFileAndLogLevel(t *testing.T) {
	dir := scratch(t)
	cfg := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("ppi: -3\n"), 0o644))

	_, _, err := run(t, "", "--config", cfg, "fonts", "list")
	assert.Error(t, err)

	_, _, err = run(t, "", "--log-level", "chatty", "fonts", "list")
	assert.Error(t, err)
}
