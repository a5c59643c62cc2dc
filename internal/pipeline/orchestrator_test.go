package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
)

const headerFixture = `const char* ei_classifier_inferencing_categories[] = { "cat", "dog", "bird" };`

// buildBundle assembles an uploaded bundle zip in memory.
func buildBundle(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func validBundle(t *testing.T) []byte {
	return buildBundle(t, map[string]string{
		"trained.tflite":                     "model-bytes",
		"model-parameters/model_variables.h": headerFixture,
	})
}

// stubVela writes a fake vela that records each invocation in markerPath and
// behaves per the given script body.
func stubVela(t *testing.T, markerPath, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "vela")
	script := fmt.Sprintf("#!/bin/sh\necho invoked >> %q\n%s", markerPath, body)
	require.NoError(t, os.WriteFile(p, []byte(script), 0o755))
	return p
}

func invoked(markerPath string) bool {
	_, err := os.Stat(markerPath)
	return err == nil
}

func testConfig(binary string) config.Config {
	cfg := config.Default()
	cfg.VelaBinary = binary
	cfg.CompileTimeoutSec = 5
	return cfg
}

// requireNoLeftoverWorkspace asserts that workDir holds no request workspaces.
func requireNoLeftoverWorkspace(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace must be cleaned up after the request")
}

// recorder collects events for assertions.
type recorder struct{ events []Event }

func (r *recorder) Handle(ev Event) { r.events = append(r.events, ev) }

func TestConvertHappyPath(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invoked")
	stub := stubVela(t, marker, `base=$(basename "$7")
stem="${base%.*}"
cp "$7" "$6/${stem}_vela.tflite"
echo "network ready"
`)
	rec := &recorder{}
	cfg := testConfig(stub)
	cfg.WorkDir = t.TempDir()
	o := New(cfg, rec)

	res, err := o.Convert(context.Background(), "mymodel-custom-v10.zip", validBundle(t))
	require.NoError(t, err)
	assert.Equal(t, StageDone, o.Stage())
	assert.True(t, invoked(marker), "vela should have been invoked")
	requireNoLeftoverWorkspace(t, cfg.WorkDir)

	assert.Equal(t, []string{"cat", "dog", "bird"}, res.Labels)
	assert.Equal(t, "mymodel-custom-v10_vela.tflite", res.ModelName)
	assert.Contains(t, res.CompilerOutput, "network ready")

	zr, err := zip.NewReader(bytes.NewReader(res.ManifestZip), int64(len(res.ManifestZip)))
	require.NoError(t, err, "result must be a readable zip")
	require.Len(t, zr.File, 2)
	for _, f := range zr.File {
		if f.Name == "labels.txt" {
			rc, err := f.Open()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
			assert.Equal(t, "cat\ndog\nbird\n", string(b))
		}
	}

	// Every stage reported start and completion, in order.
	var started []Stage
	for _, ev := range rec.events {
		if ev.Type == EventStageStarted {
			started = append(started, ev.Stage)
		}
	}
	assert.Equal(t, []Stage{StageExtracting, StageExtractingLabels, StageCompiling, StagePackaging}, started)
}

func TestConvertBadBundleName(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invoked")
	stub := stubVela(t, marker, "")
	o := New(testConfig(stub), nil)

	_, err := o.Convert(context.Background(), "model.zip", validBundle(t))
	assert.Equal(t, errors.ExtractionFailed, errors.KindOf(err))
	assert.Equal(t, StageFailed, o.Stage())
	assert.False(t, invoked(marker), "compiler must not run for a rejected bundle")
}

func TestConvertMissingModel(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invoked")
	stub := stubVela(t, marker, "")
	o := New(testConfig(stub), nil)

	data := buildBundle(t, map[string]string{
		"model-parameters/model_variables.h": headerFixture,
	})
	_, err := o.Convert(context.Background(), "mymodel-custom-v1.zip", data)
	assert.Equal(t, errors.ExtractionFailed, errors.KindOf(err))
	assert.Equal(t, StageFailed, o.Stage())
	assert.False(t, invoked(marker), "compiler must not run when extraction fails")
}

func TestConvertMalformedHeader(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invoked")
	stub := stubVela(t, marker, "")
	o := New(testConfig(stub), nil)

	data := buildBundle(t, map[string]string{
		"trained.tflite":                     "model-bytes",
		"model-parameters/model_variables.h": "// no declaration here",
	})
	_, err := o.Convert(context.Background(), "mymodel-custom-v1.zip", data)
	assert.Equal(t, errors.LabelParseFailed, errors.KindOf(err))
	assert.Equal(t, StageFailed, o.Stage())
	assert.False(t, invoked(marker), "compiler must not run when label parsing fails")
}

func TestConvertCompilerFailure(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invoked")
	stub := stubVela(t, marker, `echo "error: unsupported operator" >&2
exit 1
`)
	rec := &recorder{}
	cfg := testConfig(stub)
	cfg.WorkDir = t.TempDir()
	o := New(cfg, rec)

	res, err := o.Convert(context.Background(), "mymodel-custom-v1.zip", validBundle(t))
	assert.Nil(t, res, "no partial output on compiler failure")
	assert.Equal(t, errors.CompilationFailed, errors.KindOf(err))
	assert.Equal(t, StageFailed, o.Stage())
	requireNoLeftoverWorkspace(t, cfg.WorkDir)

	// Diagnostics surface in the failure event.
	var failure *Event
	for i := range rec.events {
		if rec.events[i].Type == EventStageFailed {
			failure = &rec.events[i]
		}
	}
	require.NotNil(t, failure)
	assert.Contains(t, failure.Detail, "unsupported operator")
}

func TestConvertSingleUse(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invoked")
	stub := stubVela(t, marker, `base=$(basename "$7")
cp "$7" "$6/${base%.*}_vela.tflite"
`)
	o := New(testConfig(stub), nil)
	_, err := o.Convert(context.Background(), "mymodel-custom-v1.zip", validBundle(t))
	require.NoError(t, err)

	_, err = o.Convert(context.Background(), "mymodel-custom-v1.zip", validBundle(t))
	assert.Error(t, err, "a finished orchestrator must reject reuse")
}

// Repeated conversions of the same bundle produce byte-identical labels.txt.
func TestConvertDeterministicLabels(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invoked")
	stub := stubVela(t, marker, `base=$(basename "$7")
cp "$7" "$6/${base%.*}_vela.tflite"
`)
	data := validBundle(t)

	extract := func() string {
		o := New(testConfig(stub), nil)
		res, err := o.Convert(context.Background(), "mymodel-custom-v1.zip", data)
		require.NoError(t, err)
		zr, err := zip.NewReader(bytes.NewReader(res.ManifestZip), int64(len(res.ManifestZip)))
		require.NoError(t, err)
		for _, f := range zr.File {
			if f.Name == "labels.txt" {
				rc, err := f.Open()
				require.NoError(t, err)
				defer rc.Close()
				b, err := io.ReadAll(rc)
				require.NoError(t, err)
				return string(b)
			}
		}
		return ""
	}

	first := extract()
	require.True(t, strings.HasSuffix(first, "\n"))
	assert.Equal(t, first, extract())
}
