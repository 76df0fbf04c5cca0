package cryptoutils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/windsend/windsend-go/interfaces"
)

// DeriveDeviceID computes the device identity shared by every device configured
// with secretHex. The secret is hashed as its hex text (not the decoded bytes),
// hashed again, and the hex digest is truncated to interfaces.DeviceIDLength.
//
// Two devices with the same secret always agree on the result without any
// exchange, which is what lets the discovery layer use it as a pairing token.
func DeriveDeviceID(secretHex string) (interfaces.DeviceID, error) {
	if _, err := DecodeSecretKeyHex(secretHex); err != nil {
		return "", err
	}

	first := sha256.Sum256([]byte(secretHex))
	second := sha256.Sum256(first[:])
	return interfaces.DeviceID(hex.EncodeToString(second[:])[:interfaces.DeviceIDLength]), nil
}

// DecodeSecretKeyHex decodes a hex secret. Empty or non-hex input fails with
// interfaces.ErrMalformedSecret.
func DecodeSecretKeyHex(secretHex string) ([]byte, error) {
	if secretHex == "" {
		return nil, fmt.Errorf("%w: empty string", interfaces.ErrMalformedSecret)
	}
	key, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedSecret, err)
	}
	return key, nil
}

// ValidateSecretKeyHex checks that secretHex decodes to exactly KeySize bytes.
func ValidateSecretKeyHex(secretHex string) error {
	key, err := DecodeSecretKeyHex(secretHex)
	if err != nil {
		return err
	}
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d bytes, expected %d", interfaces.ErrInvalidKeyLength, len(key), KeySize)
	}
	return nil
}

// GenerateRandomHex returns n random bytes hex-encoded (2n characters).
func GenerateRandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
