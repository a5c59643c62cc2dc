// Package errors defines typed errors with categories for user-friendly reporting.
// Each stage of the conversion pipeline fails with a distinct machine-readable
// kind so callers can map failures to exit codes or HTTP statuses without
// string matching.
//
// Compiler failures additionally carry the captured subprocess output so the
// diagnostic detail survives up to the presentation layer.
package errors

import "fmt"

// Kind is a machine-readable error category.
type Kind string

const (
	// ExtractionFailed indicates a bad or incomplete uploaded bundle.
	ExtractionFailed Kind = "extraction_failed"
	// LabelParseFailed indicates a missing or malformed label declaration.
	LabelParseFailed Kind = "label_parse_failed"
	// CompilationFailed indicates the external compiler failed or produced no output.
	CompilationFailed Kind = "compilation_failed"
	// PackagingFailed indicates the output archive could not be written.
	PackagingFailed Kind = "packaging_failed"
)

// E wraps an error with kind and human-friendly message.
// Diagnostics holds captured subprocess output for CompilationFailed errors.
type E struct {
	Kind        Kind
	Message     string
	Diagnostics string
	Err         error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// WithDiagnostics attaches captured subprocess output to the error.
func (e *E) WithDiagnostics(out string) *E {
	e.Diagnostics = out
	return e
}

// KindOf returns the kind of err if it is (or wraps) an *E, or "" otherwise.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*E); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// DiagnosticsOf returns the captured subprocess output attached to err, if any.
func DiagnosticsOf(err error) string {
	for err != nil {
		if e, ok := err.(*E); ok {
			return e.Diagnostics
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
