// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package vela invokes the Arm Vela ahead-of-time compiler as a subprocess.
// Vela's contract (flags, exit codes, output naming) is treated as a black
// box; this package only runs it, bounds it with a timeout, and locates the
// file it produced.
package vela

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
)

// Compiler runs the vela binary against a trained model.
type Compiler struct {
	cfg config.Config
}

// New builds a Compiler from configuration.
func New(cfg config.Config) *Compiler {
	return &Compiler{cfg: cfg}
}

// Result holds the outcome of a successful compilation.
type Result struct {
	// OutputPath is the compiled model file inside the work directory.
	OutputPath string
	// Diagnostics is the combined stdout/stderr of the vela run.
	Diagnostics string
	// Overwrote reports that no distinct output file was found and the
	// original input is assumed to have been rewritten in place.
	Overwrote bool
}

// Compile runs vela on modelPath, writing into workDir, and returns the
// located output file. The invocation is synchronous; ctx bounds it together
// with the configured timeout. A single failure is terminal, there is no
// retry.
func (c *Compiler) Compile(ctx context.Context, workDir, modelPath string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CompileTimeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, c.cfg.VelaBinary,
		"--accelerator-config", c.cfg.AcceleratorConfig,
		"--memory-mode", c.cfg.MemoryMode,
		"--output-dir", workDir,
		modelPath,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	diag := out.String()
	switch {
	case err == nil:
		// fall through to output discovery
	case ctx.Err() == context.DeadlineExceeded:
		return nil, errors.Wrap(errors.CompilationFailed,
			fmt.Sprintf("vela timed out after %s", c.cfg.CompileTimeout()), err).
			WithDiagnostics(diag)
	case isNotFound(err):
		return nil, errors.Wrap(errors.CompilationFailed,
			fmt.Sprintf("%s not found on PATH; is the converter deployed with the Vela toolchain?", c.cfg.VelaBinary), err)
	default:
		return nil, errors.Wrap(errors.CompilationFailed, "vela exited with an error", err).
			WithDiagnostics(diag)
	}

	res, err := findOutput(workDir, modelPath)
	if err != nil {
		return nil, err
	}
	res.Diagnostics = diag
	return res, nil
}

// findOutput locates the compiled model in workDir. Vela's output naming is
// inconsistent across versions: usually <stem>_vela.tflite, sometimes
// MOD00001.tfl or output.tflite, and in rare cases it rewrites the input.
func findOutput(workDir, modelPath string) (*Result, error) {
	base := filepath.Base(modelPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	candidates := []string{
		stem + "_vela.tflite",
		"MOD00001.tfl",
		"output.tflite",
	}
	for _, name := range candidates {
		p := filepath.Join(workDir, name)
		if _, err := os.Stat(p); err == nil {
			return &Result{OutputPath: p}, nil
		}
	}

	// Last resort: assume the input was overwritten in place.
	original := filepath.Join(workDir, base)
	if _, err := os.Stat(original); err == nil {
		return &Result{OutputPath: original, Overwrote: true}, nil
	}

	return nil, errors.New(errors.CompilationFailed,
		fmt.Sprintf("no vela output found in %s (looked for %s)", workDir, strings.Join(candidates, ", ")))
}

// isNotFound reports whether err means the binary itself is missing.
func isNotFound(err error) bool {
	for err != nil {
		if err == exec.ErrNotFound {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
