package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wineyard-swc/raices-assistant/internal"
)

var (
	verbose    bool
	configPath string
	dataDir    string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "raices",
	Short: "Generate project requirements, epics and user stories",
	Long: `An assistant service that turns project descriptions into structured
software artifacts: requirements, epics and user stories.

Answers come from a retrieval-augmented generation pipeline and are
normalized into stable JSON with sequential identifiers. Every
conversation is recorded to a human-readable session log that survives
restarts.

Quick Start:
  raices serve                     # Start the HTTP API
  raices list                      # List recorded sessions
  raices show <session-id>         # View a session's turns
  raices export --format md        # Export sessions as Markdown`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from the config file and
// the persistent flags.
func loadConfig() (internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return internal.Config{}, err
	}
	cfg.SetDataDir(dataDir)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "raices.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
