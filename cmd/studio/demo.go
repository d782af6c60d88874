package main

import (
	"context"
	"os"
	"time"

	"github.com/aretw0/studio/internal/cli"
	"github.com/aretw0/studio/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Play a scripted editing session and print its report",
	Long: `Records a few transactions, undoes and forks the history, switches studio,
opens a stage through a scripted file dialog and creates a shot. The resulting
journal is printed as markdown, rendered when stdout is a terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("config") {
			cfg.Snapshots.Kind = "memory"
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		app, err := cli.Build(ctx, cli.Options{Config: cfg, Logger: logger, Dialog: cli.DemoDialog()})
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.Demo(ctx, app, os.Stdout, tui.NewRenderer(os.Stdout))
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Duration("timeout", 10*time.Second, "Abort the demo after this long")
}
