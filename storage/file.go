package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/windsend/windsend-go/interfaces"
)

var _ interfaces.StorageBackend = (*FileBackend)(nil)

// FileBackend stores named files in a single local directory.
// It is used for the PEM material directory and the config file directory,
// both of which must stay on the local machine.
type FileBackend struct {
	baseDir     string
	fileMode    os.FileMode
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file storage backend rooted at baseDir, creating the
// directory if it does not exist. Concurrent creation by another process is
// tolerated. fileMode applies to files written by Store.
func NewFileBackend(baseDir string, fileMode os.FileMode, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		absDir = baseDir
	}

	return &FileBackend{
		baseDir:     baseDir,
		fileMode:    fileMode,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", absDir),
	}, nil
}

// Fetch reads a file by name. Returns interfaces.ErrContentNotFound if it doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, name string) ([]byte, error) {
	filePath := b.Path(name)

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes data under name, replacing any previous content.
// The write goes to a temporary file first and is renamed into place, so a
// crash never leaves a truncated file behind.
func (b *FileBackend) Store(ctx context.Context, name string, data []byte) error {
	filePath := b.Path(name)

	tmp, err := os.CreateTemp(b.baseDir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Chmod(b.fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Remove deletes name. A missing file is not an error.
func (b *FileBackend) Remove(ctx context.Context, name string) error {
	filePath := b.Path(name)
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	b.log.Debug("Removed file", slog.String("path", filePath))
	return nil
}

// EnsureDir creates the base directory if it does not exist.
func (b *FileBackend) EnsureDir(ctx context.Context) error {
	if err := os.MkdirAll(b.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}
	return nil
}

// Exists reports whether name is present as a regular file.
func (b *FileBackend) Exists(name string) bool {
	info, err := os.Stat(b.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// Dir returns the base directory.
func (b *FileBackend) Dir() string {
	return b.baseDir
}

// Path returns the on-disk path for name.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.baseDir, name)
}
