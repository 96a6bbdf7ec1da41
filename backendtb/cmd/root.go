// Package cmd provides the command-line interface of backendtb.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "backendtb",
	Short: "backendtb drives a modeled processor backend through a test program.",
	Long: `backendtb resets a modeled processor backend, drives a program of ` +
		`micro-operations into it and runs it until it halts or a step ` +
		`budget runs out. Every signal is traced into a waveform file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "",
		"Load BACKENDTB_* settings from this file instead of ./.env")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
