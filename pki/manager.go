package pki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/windsend/windsend-go/cryptoutils"
	"github.com/windsend/windsend-go/interfaces"
	"github.com/windsend/windsend-go/storage"
)

// Fixed file names inside the TLS material directory.
const (
	CertFile   = "cert.pem"
	KeyFile    = "key.pem"
	CACertFile = "ca_cert.pem"
	CAKeyFile  = "ca_key.pem"
)

var materialFiles = []string{CertFile, KeyFile, CACertFile, CAKeyFile}

// Material is the complete set of PEM files owned by the Manager.
type Material struct {
	// Leaf is the server certificate and key: [cert_pem, key_pem].
	Leaf cryptoutils.KeyPair

	// CA is the self-signed authority: [ca_cert_pem, ca_key_pem].
	CA cryptoutils.KeyPair

	// Generated is true when this call created the files.
	Generated bool
}

// Manager creates and loads the local CA and leaf certificate.
// It is the only component that writes to the TLS material directory.
type Manager struct {
	backend interfaces.StorageBackend
	opts    cryptoutils.CertificateOptions
	log     *slog.Logger
}

// NewManager creates a Manager over backend. opts is only used when material
// has to be generated.
func NewManager(backend interfaces.StorageBackend, opts cryptoutils.CertificateOptions, log *slog.Logger) *Manager {
	return &Manager{
		backend: backend,
		opts:    opts,
		log:     log,
	}
}

// NewManagerForDir creates the directory if needed and returns a Manager for it.
func NewManagerForDir(dir string, opts cryptoutils.CertificateOptions, log *slog.Logger) (*Manager, error) {
	backend, err := storage.NewFileBackend(dir, 0600, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open TLS directory: %w", err)
	}
	return NewManager(backend, opts, log), nil
}

// OpenManagerForDir returns a Manager for an existing directory, failing with
// interfaces.ErrContentNotFound instead of creating it.
func OpenManagerForDir(dir string, log *slog.Logger) (*Manager, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: TLS directory %s", interfaces.ErrContentNotFound, dir)
	}
	return NewManagerForDir(dir, cryptoutils.DefaultCertificateOptions(), log)
}

// Dir returns the TLS material directory.
func (m *Manager) Dir() string {
	return filepath.Dir(m.backend.Path(CertFile))
}

// Paths returns the paths of the cert, key, CA cert and CA key files, in that order.
func (m *Manager) Paths() [4]string {
	return [4]string{
		m.backend.Path(CertFile),
		m.backend.Path(KeyFile),
		m.backend.Path(CACertFile),
		m.backend.Path(CAKeyFile),
	}
}

// complete reports whether all four files are present.
func (m *Manager) complete() bool {
	for _, name := range materialFiles {
		if !m.backend.Exists(name) {
			return false
		}
	}
	return true
}

// EnsureTLSMaterial makes sure all four PEM files exist.
//
// When every file is already present nothing is written and the existing
// bytes are returned verbatim. If any file is missing the directory is
// recreated if needed, a fresh CA and leaf are generated and all four files
// are rewritten. cert.pem is removed first and written last, so an
// interrupted rewrite leaves the set incomplete and the next call starts over.
// Any failure is returned; the caller must not serve TLS without this material.
func (m *Manager) EnsureTLSMaterial(ctx context.Context) (Material, error) {
	if m.complete() {
		material, err := m.load(ctx)
		if err != nil {
			return Material{}, err
		}
		m.log.Debug("TLS material present", "dir", m.Dir())
		return material, nil
	}

	if err := m.backend.EnsureDir(ctx); err != nil {
		return Material{}, fmt.Errorf("failed to create TLS directory: %w", err)
	}

	m.log.Info("Generating CA and server certificate", "dir", m.Dir())

	leaf, ca, err := cryptoutils.GenerateCAAndSignedCertificatePair(m.opts)
	if err != nil {
		return Material{}, fmt.Errorf("failed to generate TLS material: %w", err)
	}

	if err := m.backend.Remove(ctx, CertFile); err != nil {
		return Material{}, fmt.Errorf("failed to remove stale %s: %w", CertFile, err)
	}

	writes := []struct {
		name string
		data []byte
	}{
		{CAKeyFile, ca.KeyPEM},
		{CACertFile, ca.CertPEM},
		{KeyFile, leaf.KeyPEM},
		{CertFile, leaf.CertPEM},
	}
	for _, w := range writes {
		if err := m.backend.Store(ctx, w.name, w.data); err != nil {
			return Material{}, fmt.Errorf("failed to write %s: %w", w.name, err)
		}
	}

	return Material{Leaf: leaf, CA: ca, Generated: true}, nil
}

func (m *Manager) load(ctx context.Context) (Material, error) {
	var data [4][]byte
	for i, name := range materialFiles {
		b, err := m.backend.Fetch(ctx, name)
		if err != nil {
			return Material{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
		data[i] = b
	}

	return Material{
		Leaf: cryptoutils.KeyPair{CertPEM: data[0], KeyPEM: data[1]},
		CA:   cryptoutils.KeyPair{CertPEM: data[2], KeyPEM: data[3]},
	}, nil
}

// Verify checks that the leaf on disk is signed by the CA on disk and that the
// leaf key matches the leaf certificate. It never modifies the files.
func (m *Manager) Verify(ctx context.Context) error {
	material, err := m.load(ctx)
	if err != nil {
		return err
	}
	return cryptoutils.VerifyLeaf(material.Leaf, material.CA.CertPEM)
}

// ReadCACertificatePEM returns the CA certificate so it can be published to
// peers out of band (for example in a pairing QR code).
func (m *Manager) ReadCACertificatePEM(ctx context.Context) (string, error) {
	data, err := m.backend.Fetch(ctx, CACertFile)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			return "", fmt.Errorf("CA certificate missing: %w", err)
		}
		return "", err
	}
	return string(data), nil
}
