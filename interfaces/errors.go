package interfaces

import "errors"

// Secret and cipher errors.
var (
	// ErrMalformedSecret is returned when a secret is not valid hex.
	ErrMalformedSecret = errors.New("malformed secret: not a valid hex string")

	// ErrInvalidKeyLength is returned when a decoded secret does not match the cipher key size.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrDecryptionFailed is returned when a payload cannot be authenticated.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// TLS material errors.
var (
	ErrNoPrivateKeyFound   = errors.New("no private key found")
	ErrNoCertificateFound  = errors.New("no certificate found")
	ErrTLSMaterialMismatch = errors.New("tls material mismatch")
)

// Configuration errors.
var (
	// ErrEmptyField is returned by the config empty check for a missing required field.
	ErrEmptyField = errors.New("required field is empty")

	// ErrMalformedConfig is returned when the persisted config cannot be decoded.
	ErrMalformedConfig = errors.New("malformed config file")

	ErrInvalidRelayAddress = errors.New("invalid relay server address")
	ErrEmptyRelaySecret    = errors.New("relay secret key is empty")
)

// ErrContentNotFound is returned by storage backends for missing files.
var ErrContentNotFound = errors.New("content not found")
