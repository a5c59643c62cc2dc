// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/bundle"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/labels"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/logging"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/manifest"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/vela"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/workspace"
)

// Result is the outcome of a successful conversion. ManifestZip is fully
// materialized in memory; the workspace is already gone by the time the
// caller sees it.
type Result struct {
	ManifestZip    []byte
	Labels         []string
	ModelName      string
	CompilerOutput string
}

// Orchestrator runs the conversion pipeline for a single request.
// It is single-use: one Convert call per instance. Concurrent requests each
// get their own Orchestrator and workspace; nothing is shared between them.
type Orchestrator struct {
	cfg  config.Config
	sink Sink

	mu    sync.Mutex
	stage Stage
}

// New creates an Orchestrator. A nil sink discards progress events.
func New(cfg config.Config, sink Sink) *Orchestrator {
	if sink == nil {
		sink = NopSink
	}
	return &Orchestrator{cfg: cfg, sink: sink, stage: StageIdle}
}

// Stage returns the current pipeline stage.
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Convert runs the full pipeline: extract the uploaded bundle, parse labels,
// compile with vela, and package the manifest. Any stage failure is terminal;
// the workspace is cleaned up on every exit path and no partial output is
// ever returned.
func (o *Orchestrator) Convert(ctx context.Context, bundleFileName string, data []byte) (*Result, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	name, err := bundle.ParseName(bundleFileName)
	if err != nil {
		return nil, o.fail(StageExtracting, err)
	}

	ws, err := workspace.New(o.cfg.WorkDir)
	if err != nil {
		return nil, o.fail(StageExtracting,
			errors.Wrap(errors.ExtractionFailed, "create request workspace", err))
	}
	defer ws.Cleanup()

	o.enter(StageExtracting, fmt.Sprintf("unpacking %s", name.Container()))
	if err := bundle.Unpack(data, ws.Path()); err != nil {
		return nil, o.fail(StageExtracting, err)
	}
	o.completed(StageExtracting, "found trained.tflite and model_variables.h")

	o.enter(StageExtractingLabels, "parsing model_variables.h")
	classLabels, err := labels.ParseFile(ws.Join(filepath.FromSlash(config.VariablesHeaderPath)))
	if err != nil {
		return nil, o.fail(StageExtractingLabels, err)
	}
	o.completed(StageExtractingLabels, fmt.Sprintf("%d labels: %v", len(classLabels), classLabels))

	o.enter(StageCompiling, fmt.Sprintf("vela --accelerator-config %s", o.cfg.AcceleratorConfig))
	compiled, err := vela.New(o.cfg).Compile(ctx, ws.Path(), ws.Join(config.ModelFileName))
	if err != nil {
		return nil, o.fail(StageCompiling, err)
	}
	o.sink.Handle(Event{Type: EventCompilerOutput, Stage: StageCompiling,
		Detail: logging.TruncateDiagnostics(compiled.Diagnostics)})
	if compiled.Overwrote {
		o.sink.Handle(Event{Type: EventNotice, Stage: StageCompiling,
			Message: "no distinct vela output file found; assuming the input was overwritten in place"})
	}
	o.completed(StageCompiling, filepath.Base(compiled.OutputPath))

	o.enter(StagePackaging, fmt.Sprintf("writing %s", config.ManifestFileName))
	archive, err := manifest.Build(compiled.OutputPath, name.CompiledModelName(), classLabels)
	if err != nil {
		return nil, o.fail(StagePackaging, err)
	}
	o.completed(StagePackaging, fmt.Sprintf("%d bytes", len(archive)))

	o.setStage(StageDone)
	o.sink.Handle(Event{Type: EventStageCompleted, Stage: StageDone,
		Message: fmt.Sprintf("%s ready", config.ManifestFileName)})

	return &Result{
		ManifestZip:    archive,
		Labels:         classLabels,
		ModelName:      name.CompiledModelName(),
		CompilerOutput: compiled.Diagnostics,
	}, nil
}

// begin moves Idle → first stage, rejecting reuse of a finished orchestrator.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage != StageIdle {
		return fmt.Errorf("orchestrator already ran (stage %s); create a new one per conversion", o.stage)
	}
	return nil
}

func (o *Orchestrator) setStage(s Stage) {
	o.mu.Lock()
	o.stage = s
	o.mu.Unlock()
}

func (o *Orchestrator) enter(s Stage, msg string) {
	o.setStage(s)
	o.sink.Handle(Event{Type: EventStageStarted, Stage: s, Message: msg})
}

func (o *Orchestrator) completed(s Stage, msg string) {
	o.sink.Handle(Event{Type: EventStageCompleted, Stage: s, Message: msg})
}

// fail records the terminal failure and surfaces it to the sink with any
// captured compiler diagnostics.
func (o *Orchestrator) fail(s Stage, err error) error {
	o.setStage(StageFailed)
	o.sink.Handle(Event{
		Type:    EventStageFailed,
		Stage:   s,
		Message: logging.PresentError(s.Title(), err),
		Detail:  logging.TruncateDiagnostics(errors.DiagnosticsOf(err)),
	})
	return err
}
