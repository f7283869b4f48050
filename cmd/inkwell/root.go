package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ByLCY/inkwell/config"
	"github.com/ByLCY/inkwell/engine/papyrus"
	"github.com/ByLCY/inkwell/fontcache"
	"github.com/ByLCY/inkwell/pkgstore"
)

// app is the state shared by every subcommand once the config is loaded.
type app struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "inkwell",
		Short: "Compile papyrus documents",
		Long: `inkwell compiles papyrus documents into PDF, PNG or SVG.

Settings come from inkwell.yaml (or .toml / .json) in the working directory
or the user config directory, overridden by INKWELL_* environment variables
and then by flags.

Examples:
  inkwell compile invoice.papyrus
  inkwell compile invoice.papyrus --format png --ppi 300 --out pages/{n}.png
  inkwell compile - --data customer='{"name":"ACME"}' < invoice.papyrus
  inkwell fonts list --font-path ./fonts
  inkwell packages resolve @preview/brand:1.0.0`,
		Version:      papyrus.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./inkwell.yaml)")
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")

	root.AddCommand(newCompileCmd(a), newFontsCmd(a), newPackagesCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	if cfg.File != "" {
		a.logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// fonts returns a cache holding the embedded faces plus the configured and
// extra font paths. Unreadable paths are logged and skipped.
func (a *app) fonts(extra []string) *fontcache.Cache {
	cache := fontcache.New(fontcache.WithEmbedded(), fontcache.WithLogger(a.logger))
	paths := append(append([]string{}, a.cfg.FontPaths...), extra...)
	if len(paths) == 0 {
		return cache
	}
	if _, err := cache.InsertPaths(paths...); err != nil {
		a.logger.Warn("some fonts could not be registered", "err", err)
	}
	return cache
}

func (a *app) store() (*pkgstore.Store, error) {
	s, err := pkgstore.New(a.cfg.StoreOptions(a.logger)...)
	if err != nil {
		return nil, fmt.Errorf("open package store: %w", err)
	}
	return s, nil
}
