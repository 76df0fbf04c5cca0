package interfaces

// AutoStarter registers or removes the program from OS auto-start.
// Implementations live outside this module (login items, systemd user units, registry keys).
type AutoStarter interface {
	SetAutoStart() error
	UnsetAutoStart() error
}

// LanguageSetter switches the UI language of the running program.
type LanguageSetter interface {
	SetLanguage(lang string)
}

// TrustChecker decides whether an inbound host may proceed without relay.
type TrustChecker interface {
	IsTrusted(host string) bool
}

// HostSource provides the configured allow-list of remote hosts.
type HostSource interface {
	TrustedRemoteHosts() []string
}

// Cipher encrypts and authenticates application payloads.
type Cipher interface {
	Encrypt(plaintext, additionalData []byte) ([]byte, error)
	Decrypt(data, additionalData []byte) ([]byte, error)
}
