// Command windsend bootstraps the device identity and TLS material, then
// serves the pairing API until interrupted.
//
// On first run it writes a config file with a fresh 32-byte secret and
// generates a CA and server certificate in the TLS directory. Later runs
// reuse both.
package main
