package config

// Features are build-variant switches resolved once at startup.
type Features struct {
	// DisableSystray marks a headless build: no tray icon, no OS auto-start
	// management on Linux, and discoverable by default.
	DisableSystray bool
}

// DefaultDiscoverable is the allowToBeSearchedOnce value used when the
// config does not say otherwise.
func (f Features) DefaultDiscoverable() bool {
	return f.DisableSystray
}

// ManagesAutoStart reports whether applying a config should touch OS auto-start.
func (f Features) ManagesAutoStart(goos string) bool {
	return !(goos == "linux" && f.DisableSystray)
}
