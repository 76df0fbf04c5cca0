// Package acceptor builds the server-side TLS configuration from the PEM
// files in the TLS directory. Builder guarantees the files are read and
// parsed at most once per process, however many handlers ask for it.
package acceptor
