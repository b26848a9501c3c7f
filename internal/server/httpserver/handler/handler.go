package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/crudkv-go/internal/core/domain"
	"github.com/yndnr/crudkv-go/internal/core/service"
	"github.com/yndnr/crudkv-go/internal/server/config"
	"github.com/yndnr/crudkv-go/internal/storage"
	"github.com/yndnr/crudkv-go/internal/telemetry/logger"
)

// Store is the engine surface used by health and admin routes.
type Store interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (*storage.Stats, error)
	GC(ctx context.Context) error
	Backup(ctx context.Context, w io.Writer) (int, error)
	Restore(ctx context.Context, r io.Reader) (int, error)
	Closed() bool
}

// Config holds the handler dependencies.
type Config struct {
	Resources *service.ResourceService
	Store     Store
	Endpoint  config.EndpointConfig
	Logger    *slog.Logger

	// AdminEnabled exposes /admin/v1/*. When false those routes answer 404.
	AdminEnabled bool

	// MaxBodyBytes bounds POST and PUT bodies. Zero means unlimited.
	MaxBodyBytes int64
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	resources    *service.ResourceService
	store        Store
	endpoint     config.EndpointConfig
	logger       *slog.Logger
	adminEnabled bool
	maxBodyBytes int64
	started      time.Time
	mux          *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	h := &Handler{
		resources:    cfg.Resources,
		store:        cfg.Store,
		endpoint:     cfg.Endpoint,
		logger:       cfg.Logger,
		adminEnabled: cfg.AdminEnabled,
		maxBodyBytes: cfg.MaxBodyBytes,
		started:      time.Now(),
		mux:          http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	collection := "/" + h.endpoint.Name
	h.mux.HandleFunc("GET "+collection, h.handleList)
	h.mux.HandleFunc("POST "+collection, h.handleCreate)
	h.mux.HandleFunc("GET "+collection+"/{id}", h.handleGet)
	h.mux.HandleFunc("PUT "+collection+"/{id}", h.handlePut)
	h.mux.HandleFunc("DELETE "+collection+"/{id}", h.handleDelete)

	h.mux.HandleFunc("GET /admin/v1/status", h.admin(h.handleAdminStatus))
	h.mux.HandleFunc("POST /admin/v1/gc", h.admin(h.handleAdminGC))
	h.mux.HandleFunc("GET /admin/v1/backup", h.admin(h.handleAdminBackup))
	h.mux.HandleFunc("POST /admin/v1/restore", h.admin(h.handleAdminRestore))
}

// writeJSON writes data as a bare JSON body.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.requestLogger(r).Error("failed to encode response", "error", err)
	}
}

// writeResponse writes data wrapped in the Response envelope.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.writeJSON(w, r, status, NewResponse(getRequestID(r), data))
}

// writeError writes a {code, message} error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("X-Error-Code", code)
	h.writeJSON(w, r, status, ErrorResponse{Code: code, Message: message})
}

// handleServiceError converts service errors to HTTP responses and logs
// them at a level matching their severity.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrInternal.WithCause(err)
	}
	status := errorCodeToHTTPStatus(de.Code)

	log := h.requestLogger(r)
	attrs := []any{"code", de.Code, "error", err}
	if de.Cause != nil {
		attrs = append(attrs, "cause", de.Cause.Error())
	}
	switch {
	case status == http.StatusNotFound:
		log.Debug("request failed", attrs...)
	case status < 500:
		log.Warn("request rejected", attrs...)
	default:
		log.Error("request failed", attrs...)
	}

	message := de.Message
	if de.Details != "" {
		message += ": " + de.Details
	}
	h.writeError(w, r, status, de.Code, message)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	log := h.logger
	if reqID := getRequestID(r); reqID != "" {
		log = log.With("request_id", reqID)
	}
	return log.With("method", r.Method, "path", r.URL.Path)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4050"):
		return http.StatusMethodNotAllowed
	case strings.HasSuffix(code, "-4130"):
		return http.StatusRequestEntityTooLarge
	case strings.HasSuffix(code, "-4150"):
		return http.StatusUnsupportedMediaType
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// getRequestID returns the request ID set by the RequestID middleware,
// falling back to the request header.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}
