package cmd

import (
	"context"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// githubRepoSlug is the repository releases are fetched from.
const githubRepoSlug = "stackctl/stackctl"

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update stackctl to the latest released version",
		Long: `Checks for the latest release of stackctl on GitHub and, if a newer
version is available, downloads it and replaces the current binary in place.`,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	current := rootCmd.Version
	if current == "" || current == "dev" {
		return fmt.Errorf("cannot self-update a development version (version is %q); install a released build first", current)
	}

	fmt.Printf("Current version: %s\n", current)
	fmt.Println("Checking for updates...")

	release, err := selfupdate.UpdateSelf(context.Background(), current, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("self-update failed: %w", err)
	}

	if release.Version() == current {
		fmt.Println("Already up to date.")
		return nil
	}

	fmt.Printf("Updated to version %s\n", release.Version())
	return nil
}
