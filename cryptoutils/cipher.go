package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/windsend/windsend-go/interfaces"
)

// KeySize is the AES-256-GCM key size in bytes. Pairing secrets must decode to it.
const KeySize = 32

// AESGCMCipher is the payload cipher keyed by the pairing secret.
//
// Ciphertexts are laid out as:
//
//	[nonce (12 bytes)][ciphertext][GCM tag (16 bytes)]
//
// The cipher is safe for concurrent use.
type AESGCMCipher struct {
	aead cipher.AEAD
}

var _ interfaces.Cipher = (*AESGCMCipher)(nil)

// NewAESGCMCipher creates a cipher from a raw key of exactly KeySize bytes.
func NewAESGCMCipher(key []byte) (*AESGCMCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", interfaces.ErrInvalidKeyLength, len(key), KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// BuildCipher decodes secretHex and creates the payload cipher from it.
// It fails with interfaces.ErrMalformedSecret for non-hex input and
// interfaces.ErrInvalidKeyLength when the decoded key is not KeySize bytes.
func BuildCipher(secretHex string) (*AESGCMCipher, error) {
	key, err := DecodeSecretKeyHex(secretHex)
	if err != nil {
		return nil, err
	}
	return NewAESGCMCipher(key)
}

// Encrypt seals plaintext with a fresh random nonce.
func (c *AESGCMCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt opens data produced by Encrypt.
func (c *AESGCMCipher) Decrypt(data, additionalData []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", interfaces.ErrDecryptionFailed)
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// KeySize returns the key size the cipher was built with.
func (c *AESGCMCipher) KeySize() int {
	return KeySize
}
