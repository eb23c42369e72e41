package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stackctl/internal/config"
	"stackctl/internal/docker"
)

var uninstallProject string

func newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the installed stack",
		Long: `Brings down the compose project described by the installed manifest.
Service data under the data and config roots is left in place; only the
containers and their networks are removed.`,
		RunE: runUninstall,
	}

	cmd.Flags().StringVar(&uninstallProject, "project", "stackctl", "compose project name")
	return cmd
}

func runUninstall(cmd *cobra.Command, args []string) error {
	cctx, err := config.LoadContext()
	if err != nil {
		return err
	}

	manifestPath := cctx.ManifestPath()
	if _, err := os.Stat(manifestPath); err != nil {
		return fmt.Errorf("no installed manifest at %s; nothing to uninstall", manifestPath)
	}

	engine, err := docker.NewManager()
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer engine.Close()

	if err := engine.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("Docker daemon is not reachable: %w", err)
	}

	if err := engine.ComposeDown(cmd.Context(), manifestPath, uninstallProject); err != nil {
		return fmt.Errorf("failed to bring the stack down: %w", err)
	}

	fmt.Println("Stack stopped. Service data and the manifest were kept.")
	return nil
}
