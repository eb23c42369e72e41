package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackctl/internal/catalog"
	"stackctl/internal/resolver"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <service...>",
		Short: "Show the dependency closure of a set of services",
		Long: `Resolves the given services against the catalog and prints the full
set that would be installed, marking services pulled in as dependencies.
No host state is touched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runResolve,
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	sel, err := resolver.Resolve(cat, args)
	if err != nil {
		return err
	}

	implicit := make(map[string]bool, len(sel.ImplicitlyAdded))
	for _, id := range sel.ImplicitlyAdded {
		implicit[id] = true
	}

	out := cmd.OutOrStdout()
	for _, id := range sel.IDs {
		if implicit[id] {
			fmt.Fprintf(out, "%s (dependency)\n", id)
		} else {
			fmt.Fprintln(out, id)
		}
	}
	return nil
}
