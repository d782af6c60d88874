package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/studio"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of studio",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("studio version %s\n", strings.TrimSpace(studio.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
