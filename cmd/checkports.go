package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackctl/internal/catalog"
	"stackctl/internal/ports"
	"stackctl/internal/resolver"
)

func newCheckPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-ports <service...>",
		Short: "Check a selection for port conflicts",
		Long: `Resolves the given services and checks their declared ports both
against each other and against ports already bound on this host. Conflicts
between selected services are fatal; conflicts with the host are warnings.
The command exits non-zero when a fatal conflict exists.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheckPorts,
	}
}

func runCheckPorts(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	sel, err := resolver.Resolve(cat, args)
	if err != nil {
		return err
	}

	prober := &ports.ListenProber{}
	bound, err := prober.BoundPorts(sel, cat)
	if err != nil {
		return fmt.Errorf("port probe failed: %w", err)
	}

	conflicts, err := ports.Check(cat, sel, bound)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(conflicts) == 0 {
		fmt.Fprintln(out, "No port conflicts.")
		return nil
	}
	for _, c := range conflicts {
		fmt.Fprintf(out, "%s: %s\n", c.Severity, c)
	}
	if ports.HasFatal(conflicts) {
		return fmt.Errorf("selection has unresolvable port conflicts")
	}
	return nil
}
