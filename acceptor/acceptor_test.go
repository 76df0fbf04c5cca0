package acceptor

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windsend/windsend-go/cryptoutils"
	"github.com/windsend/windsend-go/interfaces"
	"github.com/windsend/windsend-go/pki"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ensureMaterial(t *testing.T) (string, pki.Material) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tls")
	m, err := pki.NewManagerForDir(dir, cryptoutils.DefaultCertificateOptions(), testLogger())
	require.NoError(t, err)
	material, err := m.EnsureTLSMaterial(context.Background())
	require.NoError(t, err)
	return dir, material
}

func TestBuildTLSAcceptor(t *testing.T) {
	dir, material := ensureMaterial(t)

	a, err := BuildTLSAcceptor(dir)
	require.NoError(t, err)

	cfg := a.Config()
	assert.Equal(t, tls.NoClientCert, cfg.ClientAuth)
	require.Len(t, cfg.Certificates, 1)
	require.Len(t, cfg.Certificates[0].Certificate, 1)

	leaf, err := cryptoutils.ParseCertificatePEM(material.Leaf.CertPEM)
	require.NoError(t, err)
	assert.True(t, leaf.Equal(a.Certificate()))
}

func TestAcceptor_ConfigIsACopy(t *testing.T) {
	dir, _ := ensureMaterial(t)
	a, err := BuildTLSAcceptor(dir)
	require.NoError(t, err)

	cfg := a.Config()
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	cfg.Certificates = nil

	assert.Equal(t, tls.NoClientCert, a.Config().ClientAuth)
	assert.Len(t, a.Config().Certificates, 1)
}

func TestAcceptor_Handshake(t *testing.T) {
	dir, material := ensureMaterial(t)
	a, err := BuildTLSAcceptor(dir)
	require.NoError(t, err)

	caCert, err := cryptoutils.ParseCertificatePEM(material.CA.CertPEM)
	require.NoError(t, err)
	roots := x509.NewCertPool()
	roots.AddCert(caCert)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		srv := a.Server(serverConn)
		if err := srv.HandshakeContext(ctx); err != nil {
			serverErr <- err
			return
		}
		if len(srv.ConnectionState().PeerCertificates) != 0 {
			serverErr <- assert.AnError
			return
		}
		_, err := srv.Write([]byte("hello"))
		serverErr <- err
	}()

	client := tls.Client(clientConn, &tls.Config{RootCAs: roots, ServerName: "localhost"})
	require.NoError(t, client.HandshakeContext(ctx))

	buf := make([]byte, 5)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	require.NoError(t, <-serverErr)
}

func TestBuildTLSAcceptor_RSAFallback(t *testing.T) {
	dir := t.TempDir()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "rsa"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, pki.KeyFile),
		pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pki.CertFile),
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), 0644))

	a, err := BuildTLSAcceptor(dir)
	require.NoError(t, err)
	assert.Equal(t, "rsa", a.Certificate().Subject.CommonName)
}

func TestBuildTLSAcceptor_Errors(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		_, err := BuildTLSAcceptor(t.TempDir())
		require.Error(t, err)
	})

	t.Run("no private key", func(t *testing.T) {
		dir, _ := ensureMaterial(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, pki.KeyFile), []byte("garbage"), 0600))
		_, err := BuildTLSAcceptor(dir)
		require.ErrorIs(t, err, interfaces.ErrNoPrivateKeyFound)
	})

	t.Run("no certificate", func(t *testing.T) {
		dir, material := ensureMaterial(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, pki.CertFile), material.Leaf.KeyPEM, 0644))
		_, err := BuildTLSAcceptor(dir)
		require.ErrorIs(t, err, interfaces.ErrNoCertificateFound)
	})

	t.Run("key does not match certificate", func(t *testing.T) {
		dir, material := ensureMaterial(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, pki.KeyFile), material.CA.KeyPEM, 0600))
		_, err := BuildTLSAcceptor(dir)
		require.ErrorIs(t, err, interfaces.ErrTLSMaterialMismatch)
	})
}

func TestBuilder_SingleBuildUnderConcurrency(t *testing.T) {
	dir, _ := ensureMaterial(t)
	b := NewBuilder(dir, testLogger())
	assert.Equal(t, int64(0), b.Builds())

	const callers = 32
	results := make([]*Acceptor, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = b.Acceptor()
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int64(1), b.Builds())

	again, err := b.Acceptor()
	require.NoError(t, err)
	assert.Same(t, results[0], again)
	assert.Equal(t, int64(1), b.Builds())
}

func TestBuilder_CachesFailure(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir, testLogger())

	_, err := b.Acceptor()
	require.Error(t, err)

	// Material appearing later does not trigger a rebuild.
	m, err := pki.NewManagerForDir(dir, cryptoutils.DefaultCertificateOptions(), testLogger())
	require.NoError(t, err)
	_, err = m.EnsureTLSMaterial(context.Background())
	require.NoError(t, err)

	a, err := b.Acceptor()
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Equal(t, int64(1), b.Builds())
}
