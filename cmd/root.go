package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"stackctl/pkg/logging"
)

var logLevelFlag string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stackctl",
	Short: "Install and manage containerized homelab services",
	Long: `stackctl turns a curated catalog of homelab services (media management,
download clients, reverse proxies, databases, monitoring) into a running
Docker Compose stack. It resolves service dependencies, checks for port
conflicts, generates a deterministic compose manifest and drives the
installation with automatic rollback on failure.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed installations)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.ParseLevel(logLevelFlag), os.Stderr)
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "stackctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUninstallCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newCheckPortsCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
