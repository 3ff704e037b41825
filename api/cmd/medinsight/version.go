package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"medinsight/api/internal/handle"
)

// Set with -ldflags "-X main.commit=...".
var commit = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("medinsight %s\n", handle.AppVersion)
		fmt.Printf("  Go:     %s\n", runtime.Version())
		fmt.Printf("  Commit: %s\n", commit)
	},
}
