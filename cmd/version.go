// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

package cmd

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)
