package main

import (
	"context"
	"os"

	"github.com/aretw0/studio"
	"github.com/aretw0/studio/internal/cli"
	"github.com/aretw0/studio/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the studio frame loop and the HTTP inspector",
	Long: `Starts the orchestrator and the csp engine, serving the inspector on the
configured address until interrupted. The journal is saved on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("http") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("http")
		}
		if cmd.Flags().Changed("session") {
			cfg.Snapshots.Session, _ = cmd.Flags().GetString("session")
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, studio.Version)
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := cli.Build(sigCtx, cli.Options{Config: cfg, Logger: logger})
		if err != nil {
			return err
		}
		defer app.Close()
		studio.SetDefault(app.Studio)

		err = app.Run(sigCtx)
		if sig := sigCtx.Signal(); sig != nil {
			logger.Info("shutdown requested", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("http", "", "Inspector listen address, e.g. :8080 (empty disables it)")
	runCmd.Flags().String("session", "", "Session id the journal is saved under")
}
