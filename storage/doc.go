// Package storage provides the local file backend used for the config file
// and the TLS material directory. Writes are atomic renames with a fixed file mode.
package storage
