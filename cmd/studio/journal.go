package main

import (
	"os"

	"github.com/aretw0/studio/internal/cli"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal [session]",
	Short: "Print a saved undo journal",
	Long: `Loads a session from the configured snapshot store and prints its history
as a markdown tree or a Mermaid flowchart. Without a session, lists the saved ones.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, closeStore, err := cli.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		if len(args) == 0 {
			return cli.ListSessions(cmd.Context(), store, os.Stdout)
		}
		format, _ := cmd.Flags().GetString("format")
		return cli.PrintJournal(cmd.Context(), store, args[0], format, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.Flags().StringP("format", "f", "tree", "Output format: tree or mermaid")
}
