package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is a temporary directory exclusively owned by one in-flight
// fetch-transcode operation. Release is safe to call from any exit path and
// runs at most once.
type Workspace struct {
	Dir    string
	logger *slog.Logger
	once   sync.Once
}

// NewWorkspace allocates a uniquely named directory under root.
func NewWorkspace(root string, logger *slog.Logger) (*Workspace, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}

	dir := filepath.Join(root, "grab-"+uuid.NewString())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &Workspace{Dir: dir, logger: logger}, nil
}

// Release removes the workspace recursively. Best-effort: failures are
// logged, never propagated.
func (w *Workspace) Release() {
	w.once.Do(func() {
		if err := os.RemoveAll(w.Dir); err != nil {
			w.logger.Warn("workspace cleanup failed", "dir", w.Dir, "error", err)
		}
	})
}
