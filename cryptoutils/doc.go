/*
Package cryptoutils implements the cryptographic primitives of a WindSend device.

# Identity

A device is identified by the first 16 hex characters of
SHA-256(SHA-256(secret)), where secret is the UTF-8 text of the 64-character
hex secret from the config (not its decoded bytes). The id is stable for as
long as the secret does not change and reveals nothing about it.

# Payload cipher

Paired devices share the same secret. Its 32 decoded bytes key an AES-256-GCM
AEAD; sealed payloads are laid out as nonce || ciphertext || tag with a
random 12-byte nonce.

# Certificates

GenerateCAAndSignedCertificatePair creates a self-signed ECDSA P-256 CA and a
server certificate signed by it, both PEM encoded with PKCS#8 keys. Key
loading accepts PKCS#8 first and RSA PKCS#1 second so material produced by
other tools keeps working.
*/
package cryptoutils
