// Package storage provides the scratch directories used while an external
// converter runs.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Local hands out per-request workspaces under a root directory.
// Layout: <root>/<uuid>/in and <root>/<uuid>/out.
type Local struct {
	root string
}

// NewLocal returns a Local rooted at root. An empty root means the system
// temp directory.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "convertey")
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	return &Local{root: root}, nil
}

// Root returns the directory workspaces are created in.
func (l *Local) Root() string {
	return l.root
}

// Workspace is a scoped directory. Callers defer Close right after Acquire;
// Close removes everything that was written, whatever happened in between.
type Workspace struct {
	ID     string
	Dir    string
	InDir  string
	OutDir string

	closeOnce sync.Once
	closeErr  error
}

// Acquire creates a fresh workspace with a random name.
func (l *Local) Acquire() (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(l.root, id)
	ws := &Workspace{
		ID:     id,
		Dir:    dir,
		InDir:  filepath.Join(dir, "in"),
		OutDir: filepath.Join(dir, "out"),
	}
	for _, d := range []string{ws.InDir, ws.OutDir} {
		if err := os.MkdirAll(d, dirPerm); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	return ws, nil
}

// WriteInput stores data under a random file name with the given extension
// and returns its path.
func (w *Workspace) WriteInput(ext string, data []byte) (string, error) {
	p := filepath.Join(w.InDir, randomName(ext))
	if err := os.WriteFile(p, data, filePerm); err != nil {
		return "", fmt.Errorf("write input: %w", err)
	}
	return p, nil
}

// OutputPath returns a fresh path in the output directory.
func (w *Workspace) OutputPath(ext string) string {
	return filepath.Join(w.OutDir, randomName(ext))
}

// ReadOutput reads back a file the converter produced.
func (w *Workspace) ReadOutput(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("converter produced no output: %w", err)
		}
		return nil, fmt.Errorf("read output: %w", err)
	}
	return data, nil
}

// Close removes the workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		w.closeErr = os.RemoveAll(w.Dir)
	})
	return w.closeErr
}

func randomName(ext string) string {
	name := uuid.NewString()
	if ext == "" {
		return name
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	return name + ext
}
