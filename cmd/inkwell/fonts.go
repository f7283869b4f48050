package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ByLCY/inkwell/fontcache"
)

func newFontsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fonts",
		Short: "Inspect the fonts documents can use",
	}

	var (
		paths    []string
		families bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List every registered face",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := a.fonts(paths).Snapshot()
			out := cmd.OutOrStdout()
			if families {
				for _, f := range snap.Families() {
					fmt.Fprintln(out, f)
				}
				return nil
			}

			entries := make([]*fontcache.Entry, 0, snap.Len())
			for i := range snap.Len() {
				if e, ok := snap.Entry(i); ok {
					entries = append(entries, e)
				}
			}
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].Info().Family < entries[j].Info().Family
			})

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FAMILY\tWEIGHT\tSTYLE\tSTRETCH\tSOURCE")
			for _, e := range entries {
				info := e.Info()
				src := e.Path()
				if e.Embedded() {
					src = "(embedded)"
				}
				if e.Index() > 0 {
					src = fmt.Sprintf("%s#%d", src, e.Index())
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n",
					info.Family, info.Variant.Weight, info.Variant.Style, info.Variant.Stretch, src)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringSliceVar(&paths, "font-path", nil, "extra font files or directories")
	list.Flags().BoolVar(&families, "families", false, "print family names only")

	cmd.AddCommand(list)
	return cmd
}
