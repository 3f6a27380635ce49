// Package main provides the worklink CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"worklink/src/config"
	"worklink/src/logger"
	"worklink/src/telemetry"
	"worklink/src/tracker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Application configuration
	appConfig *config.Store
	// Logger for commands that print results to stdout
	log *logger.ConsoleLogger

	configPath string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "worklink",
	Short: "worklink - link commits to the GitHub issues they fix",
	Long: `worklink reads build information, finds GitHub issue references in commit
messages ("Fixes #12", "closes owner/repo#3", "GH-7", issue URLs) and resolves
them into work-item links with titles or release notes.

It runs in two modes:
- Local Mode: in-memory broker, optional SQLite store (default)
- Agentic Mode: Redpanda + Postgres, link agents run separately

Mode is auto-detected from WORKLINK_REDPANDA_BROKERS.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// stdout is reserved for command output.
		log = logger.NewStderrLogger()
		log.SetVerbose(verbose)

		return telemetry.Init(cmd.Context(), "worklink", version, telemetry.Options{
			Enabled:      appConfig.TelemetryEnabled(),
			OTLPEndpoint: appConfig.TelemetryEndpoint(),
			Writer:       os.Stderr,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables take precedence)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(commitLinkCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(deploymentsCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", tracker.WrapError(err))
		os.Exit(1)
	}
}
