// Package workspace manages the per-request extraction directory.
// Every conversion gets its own directory so simultaneous requests never
// share filesystem state; isolation comes from unique paths, not locking.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is an ephemeral directory owned by a single conversion request.
// Cleanup must run on every exit path; it is idempotent and safe to defer
// alongside explicit calls.
type Workspace struct {
	path string

	mu      sync.Mutex
	cleaned bool
}

// New creates a fresh workspace under baseDir. An empty baseDir means the
// system temp directory.
func New(baseDir string) (*Workspace, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, "wwconvert-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}
	return &Workspace{path: dir}, nil
}

// Path returns the workspace root directory.
func (w *Workspace) Path() string { return w.path }

// Join returns a path inside the workspace.
func (w *Workspace) Join(elem ...string) string {
	return filepath.Join(append([]string{w.path}, elem...)...)
}

// Cleanup removes the workspace tree. Calling it more than once is a no-op.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleaned {
		return nil
	}
	w.cleaned = true
	return os.RemoveAll(w.path)
}
