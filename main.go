// Package main is the entry point for the wwconvert CLI application.
// It converts Edge Impulse model bundles into device-ready Manifest archives
// for the Wildlife Watcher's Ethos-U accelerator.
package main

import (
	"github.com/wildlifeai/wildlife-watcher-model-conversion/cmd"
)

func main() {
	cmd.Execute()
}
