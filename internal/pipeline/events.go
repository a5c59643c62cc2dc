// Package pipeline sequences the conversion stages and reports progress
// events so the CLI and the HTTP server can narrate the run in their own way.
package pipeline

// Stage enumerates the orchestrator states. Transitions only move forward;
// Failed is reachable from any non-terminal stage and, like Done, is final.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageExtracting       Stage = "extracting"
	StageExtractingLabels Stage = "extracting_labels"
	StageCompiling        Stage = "compiling"
	StagePackaging        Stage = "packaging"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// Title returns a human-readable name for progress display.
func (s Stage) Title() string {
	switch s {
	case StageExtracting:
		return "Extracting bundle"
	case StageExtractingLabels:
		return "Extracting labels"
	case StageCompiling:
		return "Compiling with Vela"
	case StagePackaging:
		return "Packaging manifest"
	case StageDone:
		return "Done"
	case StageFailed:
		return "Failed"
	}
	return string(s)
}

// EventType enumerates known pipeline event kinds.
type EventType string

const (
	// EventStageStarted marks entry into a pipeline stage.
	EventStageStarted EventType = "stage_started"
	// EventStageCompleted marks successful completion of a stage.
	EventStageCompleted EventType = "stage_completed"
	// EventStageFailed marks a stage failure; Detail carries diagnostics.
	EventStageFailed EventType = "stage_failed"
	// EventCompilerOutput carries the captured vela output after compilation.
	EventCompilerOutput EventType = "compiler_output"
	// EventNotice carries an informational message outside stage transitions.
	EventNotice EventType = "notice"
)

// Event is a progress notification from a running conversion.
// Only a subset of fields is set depending on Type.
type Event struct {
	Type    EventType `json:"type"`
	Stage   Stage     `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Sink receives pipeline events. Implementations must be fast; events are
// emitted synchronously from the pipeline goroutine.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Handle(ev Event) { f(ev) }

// NopSink discards all events.
var NopSink Sink = SinkFunc(func(Event) {})
