// Package app wires config, identity, certificates, TLS and trust into one
// explicitly owned value. Bootstrap is the only way to obtain it.
package app
