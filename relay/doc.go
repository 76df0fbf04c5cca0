// Package relay holds the relay toggle and derives the relay channel key.
package relay
