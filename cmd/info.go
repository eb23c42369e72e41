package cmd

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"stackctl/internal/catalog"
	"stackctl/internal/config"
)

var infoCopyURL bool

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <service>",
		Short: "Show details and the access URL for a service",
		Long: `Prints a service's image, category, ports, dependencies and the URL it
is reachable at. When a domain is configured the URL goes through the
reverse proxy, otherwise it points at localhost.`,
		Args: cobra.ExactArgs(1),
		RunE: runInfo,
	}

	cmd.Flags().BoolVarP(&infoCopyURL, "copy", "c", false, "copy the access URL to the clipboard")
	return cmd
}

func runInfo(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	d, ok := cat.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown service %q; run 'stackctl list' to see the catalog", args[0])
	}

	cctx, err := config.LoadContext()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Service:   %s\n", d.ID)
	fmt.Fprintf(out, "Image:     %s\n", d.Image)
	fmt.Fprintf(out, "Category:  %s\n", d.Category)
	fmt.Fprintf(out, "Ports:     %s\n", formatPorts(d))
	if len(d.DependsOn) > 0 {
		fmt.Fprintf(out, "Depends:   %s\n", strings.Join(d.DependsOn, ", "))
	}

	url := serviceURL(d, cctx)
	if url == "" {
		fmt.Fprintln(out, "URL:       - (no exposed ports)")
		return nil
	}
	fmt.Fprintf(out, "URL:       %s\n", url)

	if infoCopyURL {
		if err := clipboard.WriteAll(url); err != nil {
			return fmt.Errorf("failed to copy URL to clipboard: %w", err)
		}
		fmt.Fprintln(out, "URL copied to clipboard.")
	}
	return nil
}

// serviceURL builds the address the service is reachable at. Only TCP
// primary ports get a URL; UDP-only services have nothing browsable.
func serviceURL(d *catalog.ServiceDescriptor, cctx config.Context) string {
	primary, ok := d.PrimaryPort()
	if !ok || primary.Protocol != catalog.ProtocolTCP {
		return ""
	}
	if cctx.Domain != "" {
		return fmt.Sprintf("https://%s.%s", d.ID, cctx.Domain)
	}
	return fmt.Sprintf("http://localhost:%d", primary.Port)
}
