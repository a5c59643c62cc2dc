package vela

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
)

// writeStub writes an executable shell script standing in for the vela binary.
// Argument order matches the Compile invocation:
// --accelerator-config X --memory-mode Y --output-dir DIR MODEL.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "vela")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func testConfig(binary string) config.Config {
	cfg := config.Default()
	cfg.VelaBinary = binary
	cfg.CompileTimeoutSec = 5
	return cfg
}

func writeModel(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "trained.tflite")
	if err := os.WriteFile(p, []byte("model-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCompileSuccess(t *testing.T) {
	stub := writeStub(t, `echo "network summary"
base=$(basename "$7")
stem="${base%.*}"
cp "$7" "$6/${stem}_vela.tflite"
`)
	workDir := t.TempDir()
	model := writeModel(t, workDir)

	res, err := New(testConfig(stub)).Compile(context.Background(), workDir, model)
	if err != nil {
		t.Fatalf("Compile() unexpected error: %v", err)
	}
	if want := filepath.Join(workDir, "trained_vela.tflite"); res.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", res.OutputPath, want)
	}
	if res.Overwrote {
		t.Error("Overwrote = true for a distinct output file")
	}
	if !strings.Contains(res.Diagnostics, "network summary") {
		t.Errorf("Diagnostics = %q, want vela stdout captured", res.Diagnostics)
	}
}

func TestCompileNonZeroExit(t *testing.T) {
	stub := writeStub(t, `echo "error: unsupported operator" >&2
exit 3
`)
	workDir := t.TempDir()
	model := writeModel(t, workDir)

	_, err := New(testConfig(stub)).Compile(context.Background(), workDir, model)
	if errors.KindOf(err) != errors.CompilationFailed {
		t.Fatalf("Compile() error = %v, want compilation_failed", err)
	}
	if diag := errors.DiagnosticsOf(err); !strings.Contains(diag, "unsupported operator") {
		t.Errorf("diagnostics = %q, want captured stderr", diag)
	}
}

func TestCompileBinaryMissing(t *testing.T) {
	cfg := testConfig("definitely-not-vela-binary")
	workDir := t.TempDir()
	model := writeModel(t, workDir)

	_, err := New(cfg).Compile(context.Background(), workDir, model)
	if errors.KindOf(err) != errors.CompilationFailed {
		t.Fatalf("Compile() error = %v, want compilation_failed", err)
	}
	if !strings.Contains(err.Error(), "not found on PATH") {
		t.Errorf("Compile() error = %v, want deployment hint", err)
	}
}

func TestCompileTimeout(t *testing.T) {
	stub := writeStub(t, "sleep 5\n")
	cfg := testConfig(stub)
	cfg.CompileTimeoutSec = 1
	workDir := t.TempDir()
	model := writeModel(t, workDir)

	_, err := New(cfg).Compile(context.Background(), workDir, model)
	if errors.KindOf(err) != errors.CompilationFailed {
		t.Fatalf("Compile() error = %v, want compilation_failed", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Compile() error = %v, want timeout message", err)
	}
}

func TestFindOutput(t *testing.T) {
	touch := func(t *testing.T, dir, name string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("stem suffix preferred", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "trained.tflite")
		touch(t, dir, "trained_vela.tflite")
		touch(t, dir, "MOD00001.tfl")
		res, err := findOutput(dir, filepath.Join(dir, "trained.tflite"))
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(res.OutputPath) != "trained_vela.tflite" {
			t.Errorf("OutputPath = %q", res.OutputPath)
		}
	})

	t.Run("mod file fallback", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "MOD00001.tfl")
		res, err := findOutput(dir, filepath.Join(dir, "trained.tflite"))
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(res.OutputPath) != "MOD00001.tfl" {
			t.Errorf("OutputPath = %q", res.OutputPath)
		}
	})

	t.Run("overwritten input", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "trained.tflite")
		res, err := findOutput(dir, filepath.Join(dir, "trained.tflite"))
		if err != nil {
			t.Fatal(err)
		}
		if !res.Overwrote {
			t.Error("Overwrote = false, want true")
		}
	})

	t.Run("nothing produced", func(t *testing.T) {
		dir := t.TempDir()
		_, err := findOutput(dir, filepath.Join(dir, "trained.tflite"))
		if errors.KindOf(err) != errors.CompilationFailed {
			t.Errorf("findOutput() error = %v, want compilation_failed", err)
		}
	})
}
