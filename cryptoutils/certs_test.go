package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windsend/windsend-go/interfaces"
)

func TestGenerateCAAndSignedCertificatePair(t *testing.T) {
	opts := DefaultCertificateOptions()
	opts.IPAddresses = append(opts.IPAddresses, net.ParseIP("203.0.113.5"))

	leaf, ca, err := GenerateCAAndSignedCertificatePair(opts)
	require.NoError(t, err)

	caCert, err := ParseCertificatePEM(ca.CertPEM)
	require.NoError(t, err)
	assert.True(t, caCert.IsCA, "CA certificate should have IsCA=true")
	assert.Equal(t, x509.KeyUsageCertSign|x509.KeyUsageCRLSign|x509.KeyUsageDigitalSignature, caCert.KeyUsage)
	assert.Equal(t, "WindSend CA", caCert.Subject.CommonName)

	leafCert, err := ParseCertificatePEM(leaf.CertPEM)
	require.NoError(t, err)
	assert.False(t, leafCert.IsCA)
	assert.Contains(t, leafCert.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.Contains(t, leafCert.DNSNames, "localhost")
	require.NoError(t, leafCert.CheckSignatureFrom(caCert))

	pool := x509.NewCertPool()
	pool.AddCert(caCert)
	_, err = leafCert.Verify(x509.VerifyOptions{Roots: pool, DNSName: "localhost"})
	require.NoError(t, err)
	_, err = leafCert.Verify(x509.VerifyOptions{Roots: pool, DNSName: "203.0.113.5"})
	require.NoError(t, err)

	// Keys are PKCS#8
	for _, keyPEM := range [][]byte{leaf.KeyPEM, ca.KeyPEM} {
		block, _ := pem.Decode(keyPEM)
		require.NotNil(t, block)
		assert.Equal(t, "PRIVATE KEY", block.Type)
	}

	require.NoError(t, VerifyLeaf(leaf, ca.CertPEM))
}

func TestGenerateCAAndSignedCertificatePair_Fresh(t *testing.T) {
	leaf1, ca1, err := GenerateCAAndSignedCertificatePair(DefaultCertificateOptions())
	require.NoError(t, err)
	leaf2, ca2, err := GenerateCAAndSignedCertificatePair(DefaultCertificateOptions())
	require.NoError(t, err)

	assert.NotEqual(t, ca1.KeyPEM, ca2.KeyPEM)
	assert.NotEqual(t, leaf1.KeyPEM, leaf2.KeyPEM)

	// A leaf from one run must not verify against another run's CA.
	require.ErrorIs(t, VerifyLeaf(leaf1, ca2.CertPEM), interfaces.ErrTLSMaterialMismatch)
}

func TestVerifyLeaf_KeyMismatch(t *testing.T) {
	leaf, ca, err := GenerateCAAndSignedCertificatePair(DefaultCertificateOptions())
	require.NoError(t, err)

	mismatched := KeyPair{CertPEM: leaf.CertPEM, KeyPEM: ca.KeyPEM}
	require.ErrorIs(t, VerifyLeaf(mismatched, ca.CertPEM), interfaces.ErrTLSMaterialMismatch)
}

func TestParsePrivateKeyPEM(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)
	pkcs8PEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pkcs1PEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)})

	ecSEC1, err := x509.MarshalECPrivateKey(ecKey)
	require.NoError(t, err)
	sec1PEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: ecSEC1})

	t.Run("PKCS8", func(t *testing.T) {
		key, err := ParsePrivateKeyPEM(pkcs8PEM)
		require.NoError(t, err)
		assert.True(t, ecKey.PublicKey.Equal(key.Public()))
	})

	t.Run("RSA fallback", func(t *testing.T) {
		key, err := ParsePrivateKeyPEM(pkcs1PEM)
		require.NoError(t, err)
		assert.True(t, rsaKey.PublicKey.Equal(key.Public()))
	})

	t.Run("PKCS8 preferred over RSA", func(t *testing.T) {
		both := append(append([]byte{}, pkcs1PEM...), pkcs8PEM...)
		key, err := ParsePrivateKeyPEM(both)
		require.NoError(t, err)
		assert.True(t, ecKey.PublicKey.Equal(key.Public()))
	})

	t.Run("SEC1 only", func(t *testing.T) {
		_, err := ParsePrivateKeyPEM(sec1PEM)
		require.ErrorIs(t, err, interfaces.ErrNoPrivateKeyFound)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParsePrivateKeyPEM([]byte("not a valid PEM"))
		require.ErrorIs(t, err, interfaces.ErrNoPrivateKeyFound)
	})
}

func TestFirstCertificateDER(t *testing.T) {
	leaf, ca, err := GenerateCAAndSignedCertificatePair(DefaultCertificateOptions())
	require.NoError(t, err)

	chain := append(append(append([]byte{}, leaf.KeyPEM...), leaf.CertPEM...), ca.CertPEM...)
	der, err := FirstCertificateDER(chain)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	assert.False(t, cert.IsCA, "first certificate entry should be the leaf")

	_, err = FirstCertificateDER(leaf.KeyPEM)
	require.ErrorIs(t, err, interfaces.ErrNoCertificateFound)

	_, err = FirstCertificateDER(nil)
	require.ErrorIs(t, err, interfaces.ErrNoCertificateFound)
}
