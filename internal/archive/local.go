package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local writes snapshots under a base directory on the local filesystem.
type Local struct {
	baseDir string
}

// NewLocal creates the base directory if needed.
func NewLocal(baseDir string) (*Local, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("archive base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

// Put implements Store.
func (l *Local) Put(_ context.Context, objectName string, data []byte) (string, error) {
	path := filepath.Join(l.baseDir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive object %s: %w", objectName, err)
	}
	return "file://" + path, nil
}

// Close implements Store.
func (l *Local) Close() error { return nil }
