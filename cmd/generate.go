package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stackctl/internal/catalog"
	"stackctl/internal/compose"
	"stackctl/internal/config"
	"stackctl/internal/resolver"
)

var (
	generateOutput string
	generateCheck  bool
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <service...>",
		Short: "Generate the compose manifest for a set of services",
		Long: `Resolves the given services and prints the compose manifest that
install would write, without touching the host. Generation is
deterministic: the same selection and configuration always produce the
same bytes.

With --check the generated manifest is compared against the one at the
install root instead; the command exits non-zero when they differ, which
makes it usable as a drift check in scripts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGenerate,
	}

	cmd.Flags().StringVarP(&generateOutput, "output", "o", "", "write the manifest to a file instead of stdout")
	cmd.Flags().BoolVar(&generateCheck, "check", false, "compare against the installed manifest and fail on drift")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load()
	if err != nil {
		return err
	}
	cctx, err := config.LoadContext()
	if err != nil {
		return err
	}

	sel, err := resolver.Resolve(cat, args)
	if err != nil {
		return err
	}

	manifest, err := compose.Generate(cat, sel, cctx)
	if err != nil {
		return err
	}
	rendered, err := manifest.Render()
	if err != nil {
		return err
	}

	if generateCheck {
		installed, err := os.ReadFile(cctx.ManifestPath())
		if err != nil {
			return fmt.Errorf("failed to read installed manifest: %w", err)
		}
		if !bytes.Equal(installed, rendered) {
			return fmt.Errorf("manifest at %s differs from the generated one", cctx.ManifestPath())
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Manifest is up to date.")
		return nil
	}

	if generateOutput != "" {
		return os.WriteFile(generateOutput, rendered, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(rendered)
	return err
}
