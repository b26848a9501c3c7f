package httpserver

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/yndnr/crudkv-go/internal/core/service"
	"github.com/yndnr/crudkv-go/internal/server/config"
	"github.com/yndnr/crudkv-go/internal/server/httpserver/handler"
	"github.com/yndnr/crudkv-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Resources *service.ResourceService
	Store     handler.Store
	Endpoint  config.EndpointConfig

	// Metrics, when set, serves /metrics and records request metrics.
	Metrics *metric.Registry

	Logger *slog.Logger

	// RateLimit is the per-IP limit in requests/second (0 = off).
	RateLimit int

	// TrustedProxies are the peers whose forwarding headers identify the
	// client. Empty means the socket address is always used.
	TrustedProxies []netip.Prefix

	// CORSAllowedOrigins enables CORS headers for these origins.
	CORSAllowedOrigins []string

	AdminEnabled bool
	MaxBodyBytes int64
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(handler.Config{
		Resources:    cfg.Resources,
		Store:        cfg.Store,
		Endpoint:     cfg.Endpoint,
		Logger:       log,
		AdminEnabled: cfg.AdminEnabled,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	mux := http.NewServeMux()
	mux.Handle("/", h)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	middlewares := []Middleware{
		RequestID(),
		ClientIP(cfg.TrustedProxies),
		Recover(log),
		StripSlash(),
		AccessLog(log),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, Metrics(cfg.Metrics, RouteLabel(cfg.Endpoint.Name)))
	}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(cfg.RateLimit))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		middlewares = append(middlewares, CORS(cfg.CORSAllowedOrigins))
	}

	return Chain(mux, middlewares...)
}

var fixedRoutes = map[string]bool{
	"/health":           true,
	"/ready":            true,
	"/metrics":          true,
	"/admin/v1/status":  true,
	"/admin/v1/gc":      true,
	"/admin/v1/backup":  true,
	"/admin/v1/restore": true,
}

// RouteLabel returns a function mapping request paths to metric route
// labels. Resource identifiers collapse into {id}.
func RouteLabel(collection string) func(*http.Request) string {
	base := "/" + collection
	return func(r *http.Request) string {
		p := r.URL.Path
		switch {
		case p == base:
			return base
		case strings.HasPrefix(p, base+"/"):
			return base + "/{id}"
		case fixedRoutes[p]:
			return p
		default:
			return "other"
		}
	}
}
