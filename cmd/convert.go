// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	converr "github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/logging"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/pipeline"

	"atomicgo.dev/cursor"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	convertOutput  string
	verboseConvert bool
	convertTimeout int
)

// convertCmd represents the convert command for running the full conversion
// pipeline locally: unpack the bundle, compile with Vela, extract labels, and
// write the Manifest archive.
var convertCmd = &cobra.Command{
	Use:   "convert <bundle.zip>",
	Short: "Convert an Edge Impulse bundle into a device-ready Manifest.zip",
	Long: `The convert command runs the full conversion pipeline on an Edge Impulse
export named <modelname>-custom-<version>.zip. It unpacks the bundle, compiles
trained.tflite with the Vela ahead-of-time compiler for the configured Ethos-U
profile, extracts the class labels from model_variables.h, and packages the
compiled model together with labels.txt into Manifest.zip.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if convertTimeout > 0 {
			cfg.CompileTimeoutSec = convertTimeout
		}

		bundlePath := args[0]
		data, err := os.ReadFile(bundlePath)
		if err != nil {
			return fmt.Errorf("read bundle: %w", err)
		}

		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Bundle: ") +
			pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(filepath.Base(bundlePath)))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Target: ") +
			pterm.NewStyle(pterm.FgLightBlue).Sprint(cfg.AcceleratorConfig+" / "+cfg.MemoryMode))
		pterm.Println()

		cursor.Hide()
		defer cursor.Show()

		render := newStageRenderer(verboseConvert)
		orch := pipeline.New(cfg, render)
		res, runErr := orch.Convert(cmd.Context(), filepath.Base(bundlePath), data)
		render.stop()

		if runErr != nil {
			pterm.Error.Println(logging.PresentError("Conversion failed", runErr))
			if diag := logging.TruncateDiagnostics(converr.DiagnosticsOf(runErr)); diag != "" {
				pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint(diag))
			}
			return runErr
		}

		out := convertOutput
		if out == "" {
			out = config.ManifestFileName
		}
		if err := os.WriteFile(out, res.ManifestZip, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}

		pterm.Println()
		pterm.Success.Printf("%s written (%s, %d labels, %d bytes)\n",
			out, res.ModelName, len(res.Labels), len(res.ManifestZip))
		return nil
	},
}

// stageRenderer turns pipeline events into the per-stage spinner/checkmark
// display used across wildlife.ai CLIs.
type stageRenderer struct {
	verbose     bool
	stopSpinner func()
}

func newStageRenderer(verbose bool) *stageRenderer {
	return &stageRenderer{verbose: verbose}
}

// stop halts any in-flight spinner. Safe to call when none is running.
func (r *stageRenderer) stop() {
	if r.stopSpinner != nil {
		r.stopSpinner()
		r.stopSpinner = nil
	}
}

func (r *stageRenderer) Handle(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventStageStarted:
		r.stop()
		r.stopSpinner = startInlineSpinner(os.Stdout, ev.Stage.Title(), 120*time.Millisecond)
	case pipeline.EventStageCompleted:
		r.stop()
		line := pterm.NewStyle(pterm.FgGreen).Sprint("✔ ") + ev.Stage.Title()
		if ev.Message != "" {
			line += pterm.NewStyle(pterm.FgGray).Sprint("  " + ev.Message)
		}
		pterm.Println(line)
	case pipeline.EventStageFailed:
		r.stop()
		pterm.Println(pterm.NewStyle(pterm.FgRed).Sprint("✖ ") + ev.Stage.Title())
	case pipeline.EventCompilerOutput:
		if r.verbose && ev.Detail != "" {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint(ev.Detail))
		}
	case pipeline.EventNotice:
		r.stop()
		pterm.Warning.Println(ev.Message)
	}
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output path for the manifest archive (default Manifest.zip)")
	convertCmd.Flags().BoolVar(&verboseConvert, "verbose", false, "Print the full Vela compiler output")
	convertCmd.Flags().IntVar(&convertTimeout, "timeout", 0, "Vela timeout in seconds (overrides config)")
	rootCmd.AddCommand(convertCmd)
}
