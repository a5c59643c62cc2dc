// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the wwconvert tool.
// It implements subcommands for converting Edge Impulse model bundles and for
// hosting the converter as an HTTP service, using the Cobra CLI framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wwconvert",
	Short: "Convert Edge Impulse model bundles for the Wildlife Watcher (Vela/Ethos-U)",
	Long: `wwconvert takes an Edge Impulse export (<modelname>-custom-<version>.zip),
compiles the trained model with the Arm Vela ahead-of-time compiler for the
Ethos-U accelerator, extracts the class labels, and packages everything into
a device-ready Manifest.zip.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("wwconvert %s\n", Version)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
