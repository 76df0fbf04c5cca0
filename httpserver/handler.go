package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/windsend/windsend-go/interfaces"
	"github.com/windsend/windsend-go/relay"
	"github.com/windsend/windsend-go/trust"
)

// Core is the part of the application the pairing API reads from.
type Core interface {
	DeviceID() (interfaces.DeviceID, error)
	CACertificatePEM(ctx context.Context) (string, error)
	Relay() relay.Settings
	Discoverability() *trust.Discoverability
	IsTrusted(host string) bool
}

// StatusResponse is returned by /api/trusted/status.
type StatusResponse struct {
	DeviceID     string `json:"deviceId"`
	RelayEnabled bool   `json:"relayEnabled"`
	Discoverable bool   `json:"discoverable"`
}

// Handler implements the pairing API.
type Handler struct {
	core Core
	log  *slog.Logger
}

func NewHandler(core Core, log *slog.Logger) *Handler {
	return &Handler{
		core: core,
		log:  log,
	}
}

// HandleCACertificate returns the CA certificate so a new peer can pin it.
func (h *Handler) HandleCACertificate(w http.ResponseWriter, r *http.Request) {
	caPEM, err := h.core.CACertificatePEM(r.Context())
	if err != nil {
		h.log.Error("Failed to read CA certificate", "err", err)
		http.Error(w, "CA certificate unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(caPEM))
}

// HandleStatus reports identity and connectivity state to a trusted peer.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := h.core.DeviceID()
	if err != nil {
		h.log.Error("Failed to derive device id", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		DeviceID:     id.String(),
		RelayEnabled: h.core.Relay().Enabled(),
		Discoverable: h.core.Discoverability().Enabled(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

// TrustedOnly rejects requests from hosts the trust policy does not accept.
func (h *Handler) TrustedOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !h.core.IsTrusted(host) {
			h.log.Warn("Rejected request from untrusted host", "host", host, "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
