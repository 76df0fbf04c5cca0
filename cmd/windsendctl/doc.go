// Command windsendctl inspects a WindSend installation: device id, CA
// certificate, trust decisions and the active config. Missing config or TLS
// material is created the same way the windsend command does.
package main
