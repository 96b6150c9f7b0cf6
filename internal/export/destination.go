package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Destination is the interface for an export target (S3, git, etc.).
type Destination interface {
	// Write sends the encoded payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// FileDestination writes the payload to a local file, replacing it.
type FileDestination struct {
	path string
}

func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (d *FileDestination) String() string { return "file:" + d.path }
