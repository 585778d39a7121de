package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sjsage522/lotteryworker/config"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagDataDir   string
	flagGamesFile string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lotteryworker",
		Short: "Collect and serve lottery draw results",
		Long: `Collects lottery draw results from public publishers, normalizes them into
one JSON history document per game, and serves latest and by-date lookups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "History document directory (overrides DATA_DIR)")
	cmd.PersistentFlags().StringVar(&flagGamesFile, "games-file", "", "JSON game definitions (overrides GAMES_FILE)")

	cmd.AddCommand(
		newServeCmd(),
		newRefreshCmd(),
		newImportCmd(),
		newQueryCmd(),
		newGamesCmd(),
	)
	return cmd
}

// loadConfig reads the environment and applies the persistent flags
func loadConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagGamesFile != "" {
		cfg.GamesFile = flagGamesFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
