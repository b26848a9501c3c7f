package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/crudkv-go/internal/infra/tlsroots"
)

// ServerConfig configures the listener.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLSCertFile  string
	TLSKeyFile   string

	// Logger receives certificate reload events.
	Logger *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        ServerConfig
}

// New creates a new HTTP server.
func New(cfg ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       2 * time.Minute,
			TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		},
		cfg: cfg,
	}
}

// TLSEnabled reports whether a certificate and key are configured.
func (s *Server) TLSEnabled() bool {
	return s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != ""
}

// ListenAndServe listens on the configured address and serves HTTP or
// HTTPS. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve serves on an existing listener. With TLS the certificate is
// reloaded whenever its files change.
func (s *Server) Serve(l net.Listener) error {
	var err error
	if s.TLSEnabled() {
		err = s.serveTLS(l)
	} else {
		err = s.httpServer.Serve(l)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) serveTLS(l net.Listener) error {
	log := s.cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	reloader, err := tlsroots.NewReloader(s.cfg.TLSCertFile, s.cfg.TLSKeyFile, tlsroots.WithLogger(log))
	if err != nil {
		l.Close()
		return fmt.Errorf("load tls certificate: %w", err)
	}
	if err := reloader.StartAsync(); err != nil {
		log.Warn("certificate reload disabled", "error", err)
	}
	defer reloader.Stop()

	s.httpServer.TLSConfig.GetCertificate = reloader.GetCertificate
	return s.httpServer.ServeTLS(l, "", "")
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
