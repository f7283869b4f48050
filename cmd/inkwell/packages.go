package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ByLCY/inkwell/pkgstore"
)

func newPackagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "packages",
		Aliases: []string{"pkg"},
		Short:   "Manage the package cache",
	}

	resolve := &cobra.Command{
		Use:   "resolve <@namespace/name:version>...",
		Short: "Download packages if needed and print their directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			var errs error
			for _, arg := range args {
				ref, err := pkgstore.ParseReference(arg)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				dir, err := store.Resolve(cmd.Context(), ref)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ref, dir)
			}
			return errs
		},
	}

	dir := &cobra.Command{
		Use:   "dir",
		Short: "Print the package cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.CacheDir())
			return nil
		},
	}

	cmd.AddCommand(resolve, dir)
	return cmd
}
