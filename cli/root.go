// Package cli wires the storyloom commands and the interactive session UI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storyloom",
	Short: "Co-write a novel with an asynchronous generation backend",
	Long: `storyloom is a terminal client for a novel-generation backend.

It streams generation progress over a persistent channel and lets you draft
prose one line at a time: accept AI-proposed continuations, type your own
lines, or regenerate until something fits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the CLI. Errors are printed once, here.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
