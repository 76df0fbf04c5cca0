package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/windsend/windsend-go/cryptoutils"
	"github.com/windsend/windsend-go/interfaces"
	"github.com/windsend/windsend-go/relay"
)

// DefaultServerPort is the port written to a freshly generated config.
const DefaultServerPort = "6779"

// DefaultTrustedRemoteHosts are trusted when the config has no allow-list.
var DefaultTrustedRemoteHosts = []string{"127.0.0.1", "localhost", "::1"}

// Config is the persisted, process-wide configuration record.
// YAML keys match the on-disk format shared with other WindSend builds.
type Config struct {
	ServerPort      string   `yaml:"serverPort"`
	SecretKeyHex    string   `yaml:"secretKeyHex"`
	ShowSystrayIcon bool     `yaml:"showToolbarIcon"`
	AutoStart       bool     `yaml:"autoStart"`
	SavePath        string   `yaml:"savePath"`
	Language        Language `yaml:"language"`
	LogLevel        string   `yaml:"logLevel"`

	// AllowToBeSearchedOnce makes the device discoverable once after start.
	AllowToBeSearchedOnce bool `yaml:"allowToBeSearchedOnce"`

	// ExternalIPs are NAT-visible addresses other devices may reach this one through.
	ExternalIPs []string `yaml:"externalIPs,omitempty"`

	// TrustedRemoteHosts may connect without relay. Empty means DefaultTrustedRemoteHosts.
	TrustedRemoteHosts []string `yaml:"trustedRemoteHosts"`

	RelayServerAddress string  `yaml:"relayServerAddress"`
	RelaySecretKey     *string `yaml:"relaySecretKey"`
	EnableRelay        bool    `yaml:"enableRelay"`
}

// GenerateDefault builds the config written on first run. Cosmetic values
// that cannot be determined (desktop path, system language) fall back to
// defaults with a warning; only a failure to generate the secret is an error.
func GenerateDefault(feats Features, log *slog.Logger) (*Config, error) {
	secret, err := cryptoutils.GenerateRandomHex(cryptoutils.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}

	savePath, err := DesktopPath()
	if err != nil {
		log.Warn("Failed to resolve desktop path, using working directory", "err", err)
		savePath = "./"
	}

	emptyRelaySecret := ""
	return &Config{
		ServerPort:            DefaultServerPort,
		SecretKeyHex:          secret,
		ShowSystrayIcon:       true,
		AutoStart:             false,
		SavePath:              savePath,
		Language:              DetectSystemLanguage(log),
		LogLevel:              "INFO",
		AllowToBeSearchedOnce: feats.DefaultDiscoverable(),
		ExternalIPs:           nil,
		TrustedRemoteHosts:    slices.Clone(DefaultTrustedRemoteHosts),
		RelayServerAddress:    "",
		RelaySecretKey:        &emptyRelaySecret,
		EnableRelay:           false,
	}, nil
}

// EmptyCheck fails if a field required for persistence or activation is empty.
func (c *Config) EmptyCheck() error {
	if c.ServerPort == "" {
		return fmt.Errorf("%w: serverPort", interfaces.ErrEmptyField)
	}
	if c.SecretKeyHex == "" {
		return fmt.Errorf("%w: secretKeyHex", interfaces.ErrEmptyField)
	}
	return nil
}

// Validate runs EmptyCheck and checks the secret and relay settings.
func (c *Config) Validate() error {
	if err := c.EmptyCheck(); err != nil {
		return err
	}
	if err := cryptoutils.ValidateSecretKeyHex(c.SecretKeyHex); err != nil {
		return fmt.Errorf("invalid secretKeyHex: %w", err)
	}
	if err := c.Relay().Validate(); err != nil {
		return err
	}
	return nil
}

// DeviceID derives the device identity from the secret.
func (c *Config) DeviceID() (interfaces.DeviceID, error) {
	return cryptoutils.DeriveDeviceID(c.SecretKeyHex)
}

// Relay returns the relay settings carried by the config.
func (c *Config) Relay() relay.Settings {
	settings := relay.Settings{
		ServerAddress: c.RelayServerAddress,
		Enable:        c.EnableRelay,
	}
	if c.RelaySecretKey != nil {
		settings.SecretKey = *c.RelaySecretKey
	}
	return settings
}

// EffectiveTrustedRemoteHosts returns the allow-list, substituting the
// loopback defaults when none is configured.
func (c *Config) EffectiveTrustedRemoteHosts() []string {
	if len(c.TrustedRemoteHosts) == 0 {
		return slices.Clone(DefaultTrustedRemoteHosts)
	}
	return slices.Clone(c.TrustedRemoteHosts)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.ExternalIPs = slices.Clone(c.ExternalIPs)
	out.TrustedRemoteHosts = slices.Clone(c.TrustedRemoteHosts)
	if c.RelaySecretKey != nil {
		key := *c.RelaySecretKey
		out.RelaySecretKey = &key
	}
	return &out
}

// Marshal encodes the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a YAML config. Unknown keys are ignored; keys missing from
// the document keep their defaults (AllowToBeSearchedOnce follows feats).
func Decode(data []byte, feats Features) (*Config, error) {
	cfg := &Config{
		AllowToBeSearchedOnce: feats.DefaultDiscoverable(),
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedConfig, err)
	}
	return cfg, nil
}
