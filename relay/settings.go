package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/crypto/argon2"

	"github.com/windsend/windsend-go/cryptoutils"
	"github.com/windsend/windsend-go/interfaces"
)

// Argon2id parameters for the relay channel key. Changing any of them breaks
// interop with peers that derived the key with the old values.
const (
	channelKeyTime    = 1
	channelKeyMemory  = 64 * 1024
	channelKeyThreads = 4
)

var channelKeySalt = []byte("windsend-relay-channel-v1")

// Settings controls whether traffic may be routed through a relay server.
type Settings struct {
	ServerAddress string
	SecretKey     string
	Enable        bool
}

// Enabled reports whether relaying is both requested and has somewhere to go.
func (s Settings) Enabled() bool {
	return s.Enable && s.ServerAddress != ""
}

// Validate checks the address when relaying is requested.
// An empty address with Enable set is allowed and just leaves relaying off.
func (s Settings) Validate() error {
	if !s.Enable || s.ServerAddress == "" {
		return nil
	}
	host, port, err := net.SplitHostPort(s.ServerAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidRelayAddress, err)
	}
	if host == "" {
		return fmt.Errorf("%w: missing host in %q", interfaces.ErrInvalidRelayAddress, s.ServerAddress)
	}
	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return fmt.Errorf("%w: bad port in %q", interfaces.ErrInvalidRelayAddress, s.ServerAddress)
	}
	return nil
}

// ChannelKey derives the relay channel key from SecretKey with Argon2id.
func (s Settings) ChannelKey() ([]byte, error) {
	if s.SecretKey == "" {
		return nil, interfaces.ErrEmptyRelaySecret
	}
	return argon2.IDKey([]byte(s.SecretKey), channelKeySalt, channelKeyTime, channelKeyMemory, channelKeyThreads, cryptoutils.KeySize), nil
}

// Cipher returns an AEAD keyed with ChannelKey.
func (s Settings) Cipher() (*cryptoutils.AESGCMCipher, error) {
	key, err := s.ChannelKey()
	if err != nil {
		return nil, err
	}
	return cryptoutils.NewAESGCMCipher(key)
}

// KeyID is a short fingerprint of ChannelKey. Two devices configured with the
// same relay secret report the same KeyID, without revealing the key.
func (s Settings) KeyID() (string, error) {
	key, err := s.ChannelKey()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])[:16], nil
}
