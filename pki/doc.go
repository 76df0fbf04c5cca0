// Package pki keeps the CA and server certificate in the TLS directory.
package pki
