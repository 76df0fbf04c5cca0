package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/windsend/windsend-go/interfaces"
)

const (
	pemTypeCertificate   = "CERTIFICATE"
	pemTypePKCS8Key      = "PRIVATE KEY"
	pemTypePKCS1RSAKey   = "RSA PRIVATE KEY"
	defaultOrganization  = "WindSend"
	defaultCommonName    = "WindSend"
	defaultValidityYears = 10
)

// KeyPair is a PEM-encoded certificate with its PEM-encoded private key.
type KeyPair struct {
	CertPEM []byte
	KeyPEM  []byte
}

// CertificateOptions controls CA and leaf generation.
type CertificateOptions struct {
	// Organization and CommonName populate the certificate subjects.
	// The CA subject is "<CommonName> CA".
	Organization string
	CommonName   string

	// DNSNames and IPAddresses are the leaf's subject alternative names.
	DNSNames    []string
	IPAddresses []net.IP

	// ValidYears applies to both certificates.
	ValidYears int
}

// DefaultCertificateOptions returns options valid for loopback connections.
func DefaultCertificateOptions() CertificateOptions {
	return CertificateOptions{
		Organization: defaultOrganization,
		CommonName:   defaultCommonName,
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		ValidYears:   defaultValidityYears,
	}
}

// GenerateCAAndSignedCertificatePair creates a fresh self-signed CA and a leaf
// certificate signed by it. Both keys are ECDSA P-256 encoded as PKCS#8.
//
// Returns:
//   - leaf: server certificate and key presented during TLS handshakes
//   - ca: CA certificate and key, published to peers out of band
//   - Error if key generation or signing fails
func GenerateCAAndSignedCertificatePair(opts CertificateOptions) (leaf KeyPair, ca KeyPair, err error) {
	if opts.ValidYears <= 0 {
		opts.ValidYears = defaultValidityYears
	}

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return KeyPair{}, KeyPair{}, fmt.Errorf("failed to generate CA key: %w", err)
	}

	caCert, caCertPEM, err := createCACertificate(caKey, opts)
	if err != nil {
		return KeyPair{}, KeyPair{}, err
	}

	caKeyPEM, err := marshalPKCS8PEM(caKey)
	if err != nil {
		return KeyPair{}, KeyPair{}, err
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return KeyPair{}, KeyPair{}, fmt.Errorf("failed to generate leaf key: %w", err)
	}

	leafCertPEM, err := signLeafCertificate(caCert, caKey, &leafKey.PublicKey, opts)
	if err != nil {
		return KeyPair{}, KeyPair{}, err
	}

	leafKeyPEM, err := marshalPKCS8PEM(leafKey)
	if err != nil {
		return KeyPair{}, KeyPair{}, err
	}

	return KeyPair{CertPEM: leafCertPEM, KeyPEM: leafKeyPEM}, KeyPair{CertPEM: caCertPEM, KeyPEM: caKeyPEM}, nil
}

// createCACertificate creates a self-signed CA certificate suitable only for signing the leaf.
func createCACertificate(caKey *ecdsa.PrivateKey, opts CertificateOptions) (*x509.Certificate, []byte, error) {
	serialNumber, err := randomSerialNumber()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{opts.Organization},
			CommonName:   opts.CommonName + " CA",
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(opts.ValidYears, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	return cert, pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: certDER}), nil
}

// signLeafCertificate issues the server certificate for pub, signed by the CA.
func signLeafCertificate(caCert *x509.Certificate, caKey crypto.Signer, pub crypto.PublicKey, opts CertificateOptions) ([]byte, error) {
	serialNumber, err := randomSerialNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{opts.Organization},
			CommonName:   opts.CommonName,
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(opts.ValidYears, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              opts.DNSNames,
		IPAddresses:           opts.IPAddresses,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, caCert, pub, caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create leaf certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: certDER}), nil
}

func randomSerialNumber() (*big.Int, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serialNumber, nil
}

func marshalPKCS8PEM(key crypto.PrivateKey) ([]byte, error) {
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS8Key, Bytes: keyBytes}), nil
}

// ParsePrivateKeyPEM returns the first usable private key in data.
// PKCS#8 blocks are tried first; only if none parses are PKCS#1 RSA blocks
// considered. Fails with interfaces.ErrNoPrivateKeyFound otherwise.
func ParsePrivateKeyPEM(data []byte) (crypto.Signer, error) {
	if key := firstKeyOfType(data, pemTypePKCS8Key, parsePKCS8Signer); key != nil {
		return key, nil
	}
	if key := firstKeyOfType(data, pemTypePKCS1RSAKey, parsePKCS1Signer); key != nil {
		return key, nil
	}
	return nil, interfaces.ErrNoPrivateKeyFound
}

func firstKeyOfType(data []byte, blockType string, parse func([]byte) (crypto.Signer, error)) crypto.Signer {
	for rest := data; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil
		}
		if block.Type != blockType {
			continue
		}
		if key, err := parse(block.Bytes); err == nil {
			return key
		}
	}
	return nil
}

func parsePKCS8Signer(der []byte) (crypto.Signer, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.New("private key is not a signer")
	}
	return signer, nil
}

func parsePKCS1Signer(der []byte) (crypto.Signer, error) {
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// FirstCertificateDER returns the DER bytes of the first CERTIFICATE block in
// data. Fails with interfaces.ErrNoCertificateFound when there is none.
func FirstCertificateDER(data []byte) ([]byte, error) {
	for rest := data; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == pemTypeCertificate {
			return block.Bytes, nil
		}
	}
	return nil, interfaces.ErrNoCertificateFound
}

// ParseCertificatePEM parses the first certificate in data.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	der, err := FirstCertificateDER(data)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

// VerifyLeaf checks that the leaf chains to the CA and that leafKeyPEM is the
// leaf's private key. Mismatches wrap interfaces.ErrTLSMaterialMismatch.
func VerifyLeaf(leaf KeyPair, caCertPEM []byte) error {
	caCert, err := ParseCertificatePEM(caCertPEM)
	if err != nil {
		return fmt.Errorf("failed to load CA certificate: %w", err)
	}
	if !caCert.IsCA {
		return fmt.Errorf("%w: CA certificate does not have IsCA set", interfaces.ErrTLSMaterialMismatch)
	}

	leafCert, err := ParseCertificatePEM(leaf.CertPEM)
	if err != nil {
		return fmt.Errorf("failed to load leaf certificate: %w", err)
	}

	if err := leafCert.CheckSignatureFrom(caCert); err != nil {
		return fmt.Errorf("%w: leaf is not signed by CA: %v", interfaces.ErrTLSMaterialMismatch, err)
	}

	key, err := ParsePrivateKeyPEM(leaf.KeyPEM)
	if err != nil {
		return err
	}

	if !publicKeysEqual(leafCert.PublicKey, key.Public()) {
		return fmt.Errorf("%w: private key does not match leaf certificate", interfaces.ErrTLSMaterialMismatch)
	}
	return nil
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	switch k := a.(type) {
	case *ecdsa.PublicKey:
		return k.Equal(b)
	case *rsa.PublicKey:
		return k.Equal(b)
	default:
		return false
	}
}
