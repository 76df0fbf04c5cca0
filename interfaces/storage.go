package interfaces

import "context"

// StorageBackend stores small named files such as PEM material and the config.
// Fetch returns ErrContentNotFound for a missing name; Remove of a missing
// name succeeds.
type StorageBackend interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Store(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
	Exists(name string) bool

	// EnsureDir recreates the backing location if it was removed.
	EnsureDir(ctx context.Context) error

	// Path returns the location of name, for logs and for tools that need a file path.
	Path(name string) string

	Available(ctx context.Context) bool
	Name() string
	LocationURI() string
}
