package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardwise/warden/internal/app"
	"github.com/cardwise/warden/internal/config"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - policy-guarded card-services assistant",
	Long: `Warden routes card-services questions onto rewards, policy, or FAQ
handling paths, enforces role-scoped content guardrails on the way in and
out, and keeps an append-only audit trail of every decision.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to warden config file")
}

// buildApp assembles the pipeline for in-process commands (ask, chat, demo).
func buildApp(ctx context.Context) (*app.App, error) {
	cfg := config.Config{ListenAddr: ":0"}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	return app.New(ctx, cfg)
}
