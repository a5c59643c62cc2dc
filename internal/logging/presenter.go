// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package logging provides utilities for presenting pipeline errors and
// compiler diagnostics. Vela prints multi-page optimization tables; the
// truncation here keeps terminal output and server logs readable while
// preserving the tail, where the actual error usually is.
package logging

import (
	"fmt"
	"strings"
)

// maxDiagnosticLines bounds how many trailing lines of compiler output are shown.
const maxDiagnosticLines = 40

// PresentError formats an error for user display.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", context, err.Error())
}

// TruncateDiagnostics trims captured subprocess output to its last
// maxDiagnosticLines lines, prefixing a marker when lines were elided.
func TruncateDiagnostics(out string) string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return ""
	}
	lines := strings.Split(out, "\n")
	if len(lines) <= maxDiagnosticLines {
		return out
	}
	kept := lines[len(lines)-maxDiagnosticLines:]
	header := fmt.Sprintf("... (%d earlier lines omitted)", len(lines)-maxDiagnosticLines)
	return header + "\n" + strings.Join(kept, "\n")
}
