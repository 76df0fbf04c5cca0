/*
Package httpserver serves the WindSend pairing API over TLS.

Routes:

  - GET /api/public/ca_cert returns the CA certificate in PEM form. Peers pin
    it to verify the server certificate on later connections.
  - GET /api/trusted/status returns the device id, relay state and
    discoverability. Only hosts accepted by the trust policy get an answer;
    others receive 403.
  - GET /livez and /readyz are health checks. /drain and /undrain toggle
    readiness and are restricted like /api/trusted.

Connections are accepted through acceptor.Acceptor.NewListener, so the server
never speaks plaintext.
*/
package httpserver
