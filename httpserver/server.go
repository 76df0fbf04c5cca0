package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/windsend/windsend-go/acceptor"
)

type HTTPServerConfig struct {
	ListenAddr  string
	EnablePprof bool
	Log         *slog.Logger

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server serves the pairing API over TLS terminated by the shared Acceptor.
type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv      *http.Server
	handler  *Handler
	acceptor *acceptor.Acceptor

	listener net.Listener
	running  atomic.Bool
	done     chan struct{}
}

func New(cfg *HTTPServerConfig, handler *Handler, acc *acceptor.Acceptor) *Server {
	srv := &Server{
		cfg:      cfg,
		log:      cfg.Log,
		handler:  handler,
		acceptor: acc,
		done:     make(chan struct{}),
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.With(srv.httpLogger).Get("/api/public/ca_cert", srv.handler.HandleCACertificate)
	mux.With(srv.httpLogger, srv.handler.TrustedOnly).Get("/api/trusted/status", srv.handler.HandleStatus)

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger, srv.handler.TrustedOnly).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger, srv.handler.TrustedOnly).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.With(srv.handler.TrustedOnly).Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}
	srv.log.Info("Server marked as not ready")
	writeStatus(w, http.StatusOK, "draining")
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}
	srv.log.Info("Server marked as ready")
	writeStatus(w, http.StatusOK, "ready")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":%q}`, status)
}

// Listen binds ListenAddr. Connections accepted afterwards are TLS.
func (srv *Server) Listen() error {
	inner, err := net.Listen("tcp", srv.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.cfg.ListenAddr, err)
	}
	srv.listener = srv.acceptor.NewListener(inner)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (srv *Server) Addr() net.Addr {
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// RunInBackground serves on the listener opened by Listen.
func (srv *Server) RunInBackground() {
	srv.running.Store(true)
	go func() {
		defer close(srv.done)
		srv.log.Info("Starting HTTPS server", "listenAddress", srv.listener.Addr().String())
		if err := srv.srv.Serve(srv.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTPS server failed", "err", err)
		}
	}()
}

// Shutdown marks the server not ready, waits DrainDuration and stops it gracefully.
func (srv *Server) Shutdown() {
	if srv.isReady.Swap(false) && srv.cfg.DrainDuration > 0 {
		srv.log.Info("Draining before shutdown", "duration", srv.cfg.DrainDuration)
		time.Sleep(srv.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTPS server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTPS server gracefully stopped")
	}
	switch {
	case srv.running.Load():
		<-srv.done
	case srv.listener != nil:
		if err := srv.listener.Close(); err != nil {
			srv.log.Debug("Failed to close unused listener", "err", err)
		}
	}
}
