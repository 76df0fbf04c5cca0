package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/windsend/windsend-go/interfaces"
	"github.com/windsend/windsend-go/storage"
)

const configFileMode = 0o600

// StoreOptions configures Load.
type StoreOptions struct {
	Features Features

	// AutoStarter and LanguageSetter are applied whenever a config becomes
	// active. Either may be nil.
	AutoStarter    interfaces.AutoStarter
	LanguageSetter interfaces.LanguageSetter

	// GOOS overrides runtime.GOOS for the auto-start decision.
	GOOS string
}

// Store holds the active configuration. Readers get deep copies; writers
// replace the whole record after it has been validated and persisted.
type Store struct {
	mu  sync.RWMutex
	cfg *Config

	// writeMu serialises Replace so persisted and in-memory state agree.
	writeMu sync.Mutex

	backend  interfaces.StorageBackend
	fileName string
	opts     StoreOptions
	log      *slog.Logger
}

// Load opens the config at path. On first run a default config is generated,
// activated and saved; created reports whether that happened. An existing
// file that cannot be decoded fails with interfaces.ErrMalformedConfig.
func Load(ctx context.Context, path string, opts StoreOptions, log *slog.Logger) (store *Store, created bool, err error) {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}

	backend, err := storage.NewFileBackend(filepath.Dir(path), configFileMode, log)
	if err != nil {
		return nil, false, fmt.Errorf("failed to prepare config directory: %w", err)
	}

	s := &Store{
		backend:  backend,
		fileName: filepath.Base(path),
		opts:     opts,
		log:      log,
	}

	data, err := backend.Fetch(ctx, s.fileName)
	if errors.Is(err, interfaces.ErrContentNotFound) {
		cfg, err := GenerateDefault(opts.Features, log)
		if err != nil {
			return nil, false, err
		}
		if err := s.Replace(ctx, cfg); err != nil {
			return nil, false, err
		}
		log.Info("Generated default config", "path", s.Path())
		return s, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Decode(data, opts.Features)
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	if err := s.activate(cfg); err != nil {
		return nil, false, err
	}

	s.cfg = cfg
	log.Info("Loaded config", "path", s.Path())
	return s, false, nil
}

// Open reads an existing config without generating one, creating
// directories or calling the activation collaborators. A missing file or
// directory fails with interfaces.ErrContentNotFound.
func Open(ctx context.Context, path string, feats Features, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: config directory %s", interfaces.ErrContentNotFound, dir)
	}

	backend, err := storage.NewFileBackend(dir, configFileMode, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open config directory: %w", err)
	}

	s := &Store{
		backend:  backend,
		fileName: filepath.Base(path),
		opts:     StoreOptions{Features: feats, GOOS: runtime.GOOS},
		log:      log,
	}

	data, err := backend.Fetch(ctx, s.fileName)
	if err != nil {
		return nil, err
	}
	cfg, err := Decode(data, feats)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

// Path returns the config file location.
func (s *Store) Path() string {
	return s.backend.Path(s.fileName)
}

// Get returns a copy of the active config.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// SecretKeyHex returns the active pairing secret.
func (s *Store) SecretKeyHex() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.SecretKeyHex
}

// TrustedRemoteHosts returns a copy of the configured allow-list.
func (s *Store) TrustedRemoteHosts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.EffectiveTrustedRemoteHosts()
}

// Replace validates cfg, applies its side effects, writes it to disk and
// makes it active. On any error the previous config stays active and the
// file is left as it was; if writing fails after the side effects were
// applied, they are applied again for the previous config.
func (s *Store) Replace(ctx context.Context, cfg *Config) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.replaceLocked(ctx, cfg.Clone())
}

// Update applies fn to a copy of the active config and replaces it.
func (s *Store) Update(ctx context.Context, fn func(cfg *Config)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Get()
	fn(next)
	return s.replaceLocked(ctx, next)
}

func (s *Store) replaceLocked(ctx context.Context, next *Config) error {
	if err := next.Validate(); err != nil {
		return err
	}
	data, err := next.Marshal()
	if err != nil {
		return err
	}
	if err := s.activate(next); err != nil {
		return err
	}
	if err := s.backend.Store(ctx, s.fileName, data); err != nil {
		if s.cfg != nil {
			if restoreErr := s.activate(s.cfg); restoreErr != nil {
				s.log.Warn("Failed to restore previous config side effects", "err", restoreErr)
			}
		}
		return fmt.Errorf("failed to save config: %w", err)
	}

	s.mu.Lock()
	s.cfg = next
	s.mu.Unlock()
	return nil
}

// activate pushes cfg into the auto-start and language collaborators.
func (s *Store) activate(cfg *Config) error {
	if err := cfg.EmptyCheck(); err != nil {
		return err
	}

	if s.opts.AutoStarter != nil && s.opts.Features.ManagesAutoStart(s.opts.GOOS) {
		var err error
		if cfg.AutoStart {
			err = s.opts.AutoStarter.SetAutoStart()
		} else {
			err = s.opts.AutoStarter.UnsetAutoStart()
		}
		if err != nil {
			return fmt.Errorf("failed to update auto start: %w", err)
		}
	}

	if s.opts.LanguageSetter != nil {
		s.opts.LanguageSetter.SetLanguage(string(cfg.Language))
	}
	return nil
}
