package cmd

import (
	"scorelib/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the score catalog HTTP server",
	Long:  `Start the HTTP server that serves the score catalog API and stored PDFs.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
