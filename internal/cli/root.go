// Package cli is the cobra command surface: `run` starts the server, and
// `user create|list|delete` manage the principal registry a running (or
// not-yet-started) server reads on the same storage path.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "openendpoint",
	Short: "An S3-compatible object storage server",
	Long: `openendpoint is a single-host, S3 wire-protocol-compatible object
storage server: it accepts signed S3 requests (the AWS CLI, MinIO client,
or any S3 SDK) and persists objects and their metadata to local disk.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (optional)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(userCmd)
}

// Execute runs the root command; the caller (cmd/openendpoint/main.go)
// passes its exit code straight to os.Exit.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
