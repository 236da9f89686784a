package cmd

import (
	"fmt"
	"os"

	"scorelib/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scorelib",
	Short: "scorelib is a catalog service for sheet-music PDFs.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
