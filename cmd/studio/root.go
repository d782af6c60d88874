package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Studio runs the editor orchestrator, its undo journal and csp workflows",
	Long: `Studio hosts the editor orchestrator headless: studios and activities,
the branching undo journal and the csp workflows, with an HTTP inspector.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
}

// loadConfig reads --config, or the defaults when the flag is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newLogger builds the stderr logger at --log-level, falling back to the config level.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level, _ = cmd.Flags().GetString("log-level")
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}
