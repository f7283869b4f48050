package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/inkwell/config"
	"github.com/ByLCY/inkwell/diag"
	"github.com/ByLCY/inkwell/engine/papyrus"
	"github.com/ByLCY/inkwell/fontcache"
	"github.com/ByLCY/inkwell/layout"
	"github.com/ByLCY/inkwell/world"
)

type compileOptions struct {
	format     string
	out        string
	root       string
	inputs     []string
	data       []string
	fontPaths  []string
	ppi        float64
	background string
	workers    int
	debug      string
	rawUnits   bool
}

func newCompileCmd(a *app) *cobra.Command {
	o := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile <file | ->",
		Short: "Compile a document to PDF, PNG or SVG",
		Long: `Compile a papyrus document. "-" reads the document from stdin; it can
then only import packages, not project files.

PNG and SVG produce one file per page. A "{n}" in --out is replaced by the
page number; otherwise multi-page output is numbered before the extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.compile(cmd, args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.format, "format", "f", "", "output format: pdf, png or svg (default from --out, else pdf)")
	f.StringVarP(&o.out, "out", "o", "", "output path (default next to the input)")
	f.StringVar(&o.root, "root", "", "project root (default is the input's directory)")
	f.StringArrayVar(&o.inputs, "input", nil, "string input exposed as sys.inputs.<key> (key=value)")
	f.StringArrayVar(&o.data, "data", nil, "global bound to a JSON value (name=json)")
	f.StringSliceVar(&o.fontPaths, "font-path", nil, "extra font files or directories")
	f.Float64Var(&o.ppi, "ppi", 0, "PNG pixel density (default from config)")
	f.StringVar(&o.background, "background", "", `PNG background, "#rrggbb" or "transparent" (default from config)`)
	f.IntVar(&o.workers, "workers", 0, "concurrent page renders (default from config, else CPU count)")
	f.StringVar(&o.debug, "debug", "", "write the layout as JSON to this path")
	f.BoolVar(&o.rawUnits, "debug-raw-units", false, "keep source units in the debug JSON")
	return cmd
}

func (a *app) compile(cmd *cobra.Command, input string, o *compileOptions) error {
	format, err := outputFormat(o.format, o.out)
	if err != nil {
		return err
	}

	b, err := a.builder(cmd, input, o)
	if err != nil {
		return err
	}
	w, err := b.Build()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()
	if o.debug != "" {
		doc, diags := w.Document(ctx)
		if doc == nil {
			printDiagnostics(errOut, diags)
			return errors.New("compilation failed")
		}
		if err := writeDebug(doc.(*papyrus.Document).Layout(), o.debug); err != nil {
			return err
		}
	}

	out := o.out
	if out == "" {
		out = defaultOutput(input, format)
	}
	var (
		pages [][]byte
		diags diag.List
	)
	switch format {
	case "pdf":
		res := w.CompilePDF(ctx)
		diags = res.Diagnostics
		if res.OK() {
			pages = [][]byte{res.Output}
		}
	case "png":
		res := w.CompilePNG(ctx)
		pages, diags = res.Output, res.Diagnostics
	case "svg":
		res := w.CompileSVG(ctx)
		pages, diags = res.Output, res.Diagnostics
	}
	printDiagnostics(errOut, diags)
	if len(pages) == 0 {
		return errors.New("compilation failed")
	}

	for i, data := range pages {
		path := pagePath(out, i+1, len(pages))
		if err := writeOutput(path, data); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	a.logger.Info("compiled", "input", input, "format", format, "files", len(pages))
	return nil
}

// builder maps the flags and the loaded config onto a world builder. Flags
// win over config values.
func (a *app) builder(cmd *cobra.Command, input string, o *compileOptions) (*world.Builder, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	b := world.NewBuilder().
		WithLogger(a.logger).
		WithFontCache(fontcache.New(fontcache.WithEmbedded(), fontcache.WithLogger(a.logger))).
		WithFontPaths(a.cfg.FontPaths...).
		WithFontPaths(o.fontPaths...).
		WithPackageStore(store)

	opts := []papyrus.Option{papyrus.WithLogger(a.logger)}
	if o.rawUnits {
		opts = append(opts, papyrus.WithRawUnits())
	}
	b.WithEngine(papyrus.New(opts...))

	if input == "-" {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		b.WithContentInput(string(src))
	} else {
		b.WithFileInput(input, o.root)
	}

	ppi := a.cfg.PPI
	if o.ppi != 0 {
		ppi = o.ppi
	}
	bg := a.cfg.Background
	if o.background != "" {
		bg = o.background
	}
	background, err := config.ParseBackground(bg)
	if err != nil {
		return nil, fmt.Errorf("--background: %w", err)
	}
	workers := a.cfg.Workers
	if o.workers != 0 {
		workers = o.workers
	}
	b.WithPPI(ppi).WithBackground(background).WithWorkers(workers)

	inputs, err := splitPairs("--input", o.inputs)
	if err != nil {
		return nil, err
	}
	b.WithInputs(inputs)

	for _, kv := range o.data {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--data %q: want name=json", kv)
		}
		b.WithCustomData(world.JSON(name, []byte(raw)))
	}
	return b, nil
}

func splitPairs(flag string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%s %q: want key=value", flag, kv)
		}
		out[k] = v
	}
	return out, nil
}

func outputFormat(flag, out string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	switch format {
	case "":
		return "pdf", nil
	case "pdf", "png", "svg":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want pdf, png or svg)", format)
	}
}

func defaultOutput(input, format string) string {
	if input == "-" {
		return "out." + format
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
}

// pagePath numbers page n of total in out.
func pagePath(out string, n, total int) string {
	if strings.Contains(out, "{n}") {
		return strings.ReplaceAll(out, "{n}", strconv.Itoa(n))
	}
	if total == 1 {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "-" + strconv.Itoa(n) + ext
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeDebug(res *layout.Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create debug directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create debug file: %w", err)
	}
	defer f.Close()
	if err := layout.WriteDebugJSON(res, f); err != nil {
		return fmt.Errorf("write debug JSON: %w", err)
	}
	return f.Close()
}

func printDiagnostics(w io.Writer, diags diag.List) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}
