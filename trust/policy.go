package trust

import (
	"net"
	"net/netip"
	"strings"
	"sync"

	"github.com/windsend/windsend-go/interfaces"
)

var defaultHosts = []string{"127.0.0.1", "localhost", "::1"}

// Discoverability is the "allow to be searched once" flag. While set, every
// host is trusted so that a new peer can complete pairing.
type Discoverability struct {
	mu      sync.Mutex
	enabled bool
}

func (d *Discoverability) Set() {
	d.mu.Lock()
	d.enabled = true
	d.mu.Unlock()
}

func (d *Discoverability) Clear() {
	d.mu.Lock()
	d.enabled = false
	d.mu.Unlock()
}

func (d *Discoverability) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// ConsumeOnce clears the flag and reports whether it was set.
func (d *Discoverability) ConsumeOnce() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.enabled
	d.enabled = false
	return was
}

// Policy answers whether a remote host may talk to this device directly.
type Policy struct {
	hosts interfaces.HostSource
	flag  *Discoverability
}

var _ interfaces.TrustChecker = (*Policy)(nil)

// NewPolicy creates a Policy. hosts may be nil, in which case only the
// loopback defaults are trusted.
func NewPolicy(hosts interfaces.HostSource, flag *Discoverability) *Policy {
	if flag == nil {
		flag = &Discoverability{}
	}
	return &Policy{hosts: hosts, flag: flag}
}

// IsTrusted reports whether host is trusted. host may carry a port
// ("10.0.0.2:6779", "[::1]:6779") which is ignored.
func (p *Policy) IsTrusted(host string) bool {
	if p.flag.Enabled() {
		return true
	}

	var allowed []string
	if p.hosts != nil {
		allowed = p.hosts.TrustedRemoteHosts()
	}
	if len(allowed) == 0 {
		allowed = defaultHosts
	}

	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, candidate := range allowed {
		if hostsEqual(host, normalizeHost(candidate)) {
			return true
		}
	}
	return false
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return host
}

func hostsEqual(a, b string) bool {
	if b == "" {
		return false
	}
	addrA, errA := netip.ParseAddr(a)
	addrB, errB := netip.ParseAddr(b)
	if errA == nil && errB == nil {
		return addrA.Unmap().WithZone("") == addrB.Unmap().WithZone("")
	}
	return strings.EqualFold(a, b)
}
