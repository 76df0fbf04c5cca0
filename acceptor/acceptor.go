package acceptor

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/atomic"

	"github.com/windsend/windsend-go/cryptoutils"
	"github.com/windsend/windsend-go/interfaces"
	"github.com/windsend/windsend-go/pki"
)

// Acceptor terminates server-side TLS with the leaf certificate.
// It is immutable after construction and shared by all connection handlers.
// Clients are not asked for a certificate: peers prove knowledge of the
// pairing secret at the application layer instead.
type Acceptor struct {
	config *tls.Config
}

// BuildTLSAcceptor loads key.pem and cert.pem from dir and returns an Acceptor.
//
// The key file is searched for PKCS#8 keys first and RSA PKCS#1 keys second
// (interfaces.ErrNoPrivateKeyFound if neither parses). Only the first
// certificate of cert.pem is used (interfaces.ErrNoCertificateFound if absent).
func BuildTLSAcceptor(dir string) (*Acceptor, error) {
	keyPEM, err := os.ReadFile(filepath.Join(dir, pki.KeyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	privateKey, err := cryptoutils.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	certPEM, err := os.ReadFile(filepath.Join(dir, pki.CertFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	certDER, err := cryptoutils.FirstCertificateDER(certPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	return New(certDER, privateKey)
}

// New creates an Acceptor presenting certDER, which must belong to key.
func New(certDER []byte, key crypto.Signer) (*Acceptor, error) {
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	pub, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(key.Public()) {
		return nil, fmt.Errorf("%w: private key does not match certificate", interfaces.ErrTLSMaterialMismatch)
	}

	return &Acceptor{
		config: &tls.Config{
			Certificates: []tls.Certificate{{
				Certificate: [][]byte{certDER},
				PrivateKey:  key,
				Leaf:        leaf,
			}},
			ClientAuth: tls.NoClientCert,
			MinVersion: tls.VersionTLS12,
		},
	}, nil
}

// Config returns a copy of the server configuration for APIs that need a
// *tls.Config. Changes to the copy do not affect the Acceptor.
func (a *Acceptor) Config() *tls.Config {
	return a.config.Clone()
}

// Certificate returns the parsed leaf certificate.
func (a *Acceptor) Certificate() *x509.Certificate {
	return a.config.Certificates[0].Leaf
}

// Server wraps an accepted connection. The handshake runs on first Read/Write
// or an explicit HandshakeContext call.
func (a *Acceptor) Server(conn net.Conn) *tls.Conn {
	return tls.Server(conn, a.config)
}

// NewListener wraps inner so every accepted connection is a TLS server conn.
func (a *Acceptor) NewListener(inner net.Listener) net.Listener {
	return tls.NewListener(inner, a.config)
}

// Builder builds the Acceptor for a TLS directory at most once.
// All callers, including concurrent first callers, receive the same result.
type Builder struct {
	dir string
	log *slog.Logger

	once     sync.Once
	acceptor *Acceptor
	err      error
	builds   atomic.Int64
}

// NewBuilder creates a Builder for dir. Nothing is read until Acceptor is called.
func NewBuilder(dir string, log *slog.Logger) *Builder {
	return &Builder{
		dir: dir,
		log: log,
	}
}

// Acceptor returns the shared Acceptor, building it on first use.
// A build failure is cached as well and returned to every caller.
func (b *Builder) Acceptor() (*Acceptor, error) {
	b.once.Do(func() {
		b.builds.Inc()
		b.acceptor, b.err = BuildTLSAcceptor(b.dir)
		if b.err != nil {
			b.log.Error("Failed to build TLS acceptor", "dir", b.dir, "err", b.err)
			return
		}
		b.log.Info("TLS acceptor ready", "dir", b.dir, "subject", b.acceptor.Certificate().Subject.CommonName)
	})
	return b.acceptor, b.err
}

// Builds returns how many build passes have run (0 or 1).
func (b *Builder) Builds() int64 {
	return b.builds.Load()
}
