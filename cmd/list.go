package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"stackctl/internal/catalog"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the services available in the catalog",
		Long: `Lists every installable service, grouped by category, with its image
and exposed ports. The catalog is the built-in one merged with any user
(~/.config/stackctl/catalog.yaml) and project (./.stackctl/catalog.yaml)
overlays.`,
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	byCategory := make(map[catalog.Category][]*catalog.ServiceDescriptor)
	for _, id := range cat.AllIDs() {
		d, _ := cat.Lookup(id)
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}

	categories := make([]catalog.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	out := cmd.OutOrStdout()
	for _, c := range categories {
		fmt.Fprintf(out, "%s:\n", c)
		for _, d := range byCategory[c] {
			fmt.Fprintf(out, "  %-16s %-40s %s\n", d.ID, d.Image, formatPorts(d))
		}
	}
	return nil
}

func formatPorts(d *catalog.ServiceDescriptor) string {
	if len(d.Ports) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(d.Ports))
	for _, p := range d.Ports {
		parts = append(parts, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
	}
	return strings.Join(parts, ", ")
}
