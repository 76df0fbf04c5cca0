package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"

	"github.com/windsend/windsend-go/acceptor"
	"github.com/windsend/windsend-go/config"
	"github.com/windsend/windsend-go/cryptoutils"
	"github.com/windsend/windsend-go/interfaces"
	"github.com/windsend/windsend-go/pki"
	"github.com/windsend/windsend-go/relay"
	"github.com/windsend/windsend-go/trust"
)

// Options configures Bootstrap.
type Options struct {
	Paths    config.Paths
	Features config.Features

	// CertificateOptions overrides the generated certificate subjects and
	// SANs. Addresses from the config's externalIPs are always added.
	CertificateOptions *cryptoutils.CertificateOptions

	AutoStarter    interfaces.AutoStarter
	LanguageSetter interfaces.LanguageSetter

	// EagerAcceptor builds the TLS acceptor during Bootstrap so that broken
	// material fails startup instead of the first connection.
	EagerAcceptor bool

	Log *slog.Logger
}

// App owns the process-wide state of a WindSend instance.
type App struct {
	log *slog.Logger

	store           *config.Store
	discoverability *trust.Discoverability
	policy          *trust.Policy
	pki             *pki.Manager
	acceptors       *acceptor.Builder

	cipherMu     sync.Mutex
	cipher       *cryptoutils.AESGCMCipher
	cipherSecret string

	relayCipherMu     sync.Mutex
	relayCipher       *cryptoutils.AESGCMCipher
	relayCipherSecret string

	firstRun bool
}

// Bootstrap loads or creates the config, ensures the TLS material exists and
// is consistent, and returns the ready App. Any error means the process must
// not start serving.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	store, created, err := config.Load(ctx, opts.Paths.ConfigFile, config.StoreOptions{
		Features:       opts.Features,
		AutoStarter:    opts.AutoStarter,
		LanguageSetter: opts.LanguageSetter,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := store.Get()

	discoverability := &trust.Discoverability{}
	if cfg.AllowToBeSearchedOnce {
		discoverability.Set()
	}

	certOpts := cryptoutils.DefaultCertificateOptions()
	if opts.CertificateOptions != nil {
		certOpts = *opts.CertificateOptions
	}
	certOpts = withExternalAddresses(certOpts, cfg.ExternalIPs)

	manager, err := pki.NewManagerForDir(opts.Paths.TLSDir, certOpts, log)
	if err != nil {
		return nil, err
	}
	material, err := manager.EnsureTLSMaterial(ctx)
	if err != nil {
		return nil, err
	}
	if err := manager.Verify(ctx); err != nil {
		return nil, fmt.Errorf("TLS material in %s is unusable: %w", manager.Dir(), err)
	}

	a := &App{
		log:             log,
		store:           store,
		discoverability: discoverability,
		policy:          trust.NewPolicy(store, discoverability),
		pki:             manager,
		acceptors:       acceptor.NewBuilder(manager.Dir(), log),
		firstRun:        created,
	}

	if opts.EagerAcceptor {
		if _, err := a.acceptors.Acceptor(); err != nil {
			return nil, err
		}
	}

	deviceID, err := a.DeviceID()
	if err != nil {
		return nil, err
	}
	if settings := cfg.Relay(); settings.Enabled() {
		if keyID, err := settings.KeyID(); err != nil {
			log.Warn("Relay enabled without a usable secret", "err", err)
		} else {
			log.Info("Relay channel key ready", "address", settings.ServerAddress, "keyID", keyID)
		}
	}
	log.Info("WindSend core ready",
		"deviceID", deviceID,
		"config", store.Path(),
		"tlsDir", manager.Dir(),
		"firstRun", created,
		"certificatesGenerated", material.Generated,
		"discoverable", discoverability.Enabled(),
		"relay", cfg.Relay().Enabled())
	return a, nil
}

// Open loads an existing installation without generating a config or TLS
// material and without calling the activation collaborators. The
// discoverability flag starts cleared so trust answers reflect the allow-list.
// A missing config or TLS directory fails with interfaces.ErrContentNotFound.
func Open(ctx context.Context, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	store, err := config.Open(ctx, opts.Paths.ConfigFile, opts.Features, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	manager, err := pki.OpenManagerForDir(opts.Paths.TLSDir, log)
	if err != nil {
		return nil, err
	}

	discoverability := &trust.Discoverability{}
	return &App{
		log:             log,
		store:           store,
		discoverability: discoverability,
		policy:          trust.NewPolicy(store, discoverability),
		pki:             manager,
		acceptors:       acceptor.NewBuilder(manager.Dir(), log),
	}, nil
}

func withExternalAddresses(opts cryptoutils.CertificateOptions, external []string) cryptoutils.CertificateOptions {
	opts.DNSNames = slices.Clone(opts.DNSNames)
	opts.IPAddresses = slices.Clone(opts.IPAddresses)
	for _, addr := range external {
		if ip := net.ParseIP(addr); ip != nil {
			if !slices.ContainsFunc(opts.IPAddresses, ip.Equal) {
				opts.IPAddresses = append(opts.IPAddresses, ip)
			}
			continue
		}
		if addr != "" && !slices.Contains(opts.DNSNames, addr) {
			opts.DNSNames = append(opts.DNSNames, addr)
		}
	}
	return opts
}

// FirstRun reports whether Bootstrap generated a new config.
func (a *App) FirstRun() bool {
	return a.firstRun
}

// DeviceID derives the identity from the active secret.
func (a *App) DeviceID() (interfaces.DeviceID, error) {
	return cryptoutils.DeriveDeviceID(a.store.SecretKeyHex())
}

// Cipher returns the pairing AEAD for the active secret. The instance is
// reused until the secret changes.
func (a *App) Cipher() (*cryptoutils.AESGCMCipher, error) {
	secret := a.store.SecretKeyHex()

	a.cipherMu.Lock()
	defer a.cipherMu.Unlock()
	if a.cipher != nil && a.cipherSecret == secret {
		return a.cipher, nil
	}
	c, err := cryptoutils.BuildCipher(secret)
	if err != nil {
		return nil, err
	}
	a.cipher = c
	a.cipherSecret = secret
	return c, nil
}

// RelayCipher returns the AEAD for the relay channel, derived from the relay
// secret. The instance is reused until the secret changes.
func (a *App) RelayCipher() (*cryptoutils.AESGCMCipher, error) {
	settings := a.Relay()

	a.relayCipherMu.Lock()
	defer a.relayCipherMu.Unlock()
	if a.relayCipher != nil && a.relayCipherSecret == settings.SecretKey {
		return a.relayCipher, nil
	}
	c, err := settings.Cipher()
	if err != nil {
		return nil, err
	}
	a.relayCipher = c
	a.relayCipherSecret = settings.SecretKey
	return c, nil
}

// TLSAcceptor returns the shared acceptor, building it on first use.
func (a *App) TLSAcceptor() (*acceptor.Acceptor, error) {
	return a.acceptors.Acceptor()
}

// IsTrusted applies the trust policy to host.
func (a *App) IsTrusted(host string) bool {
	return a.policy.IsTrusted(host)
}

// TrustPolicy returns the policy used by IsTrusted.
func (a *App) TrustPolicy() interfaces.TrustChecker {
	return a.policy
}

// CACertificatePEM returns the CA certificate for distribution to peers.
func (a *App) CACertificatePEM(ctx context.Context) (string, error) {
	return a.pki.ReadCACertificatePEM(ctx)
}

// Relay returns the relay settings of the active config.
func (a *App) Relay() relay.Settings {
	return a.store.Get().Relay()
}

// Config returns a copy of the active config.
func (a *App) Config() *config.Config {
	return a.store.Get()
}

// ConfigPath returns the location of the config file.
func (a *App) ConfigPath() string {
	return a.store.Path()
}

// ReplaceConfig validates, activates and persists cfg.
func (a *App) ReplaceConfig(ctx context.Context, cfg *config.Config) error {
	return a.store.Replace(ctx, cfg)
}

func (a *App) Discoverability() *trust.Discoverability {
	return a.discoverability
}

// TLSDir returns the directory holding the PEM files.
func (a *App) TLSDir() string {
	return a.pki.Dir()
}
