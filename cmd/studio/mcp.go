package main

import (
	"context"

	"github.com/aretw0/studio/internal/cli"
	mcpadapter "github.com/aretw0/studio/pkg/adapters/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the studio to MCP clients over stdio",
	Long: `Runs the studio frame loop and exposes its view, journal, undo, redo,
studio switching and event emission as Model Context Protocol tools on
stdin/stdout. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := cli.Build(sigCtx, cli.Options{Config: cfg, Logger: logger})
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithCancel(sigCtx)
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return app.Run(gctx) })
		g.Go(func() error {
			// The studio stops with the client session.
			defer cancel()
			return mcpadapter.NewServer(app.Studio).ServeStdio()
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
