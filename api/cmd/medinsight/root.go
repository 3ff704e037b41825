package main

import (
	"github.com/spf13/cobra"

	"medinsight/api/internal/handle"
)

var rootCmd = &cobra.Command{
	Use:   "medinsight",
	Short: "Plain-language reports for medical images",
	Long: `medinsight analyzes photos of X-rays, blood test results and prescriptions
with a vision language model and returns a structured report with a severity
level, findings, recommended actions and an optional spoken summary.

Without a subcommand it starts the HTTP server.`,
	Version:      handle.AppVersion,
	SilenceUsage: true,
	RunE:         runServe,
}

var outputFormat string

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json, yaml or markdown",
	)
	rootCmd.AddCommand(serveCmd, analyzeCmd, historyCmd, versionCmd)
}
