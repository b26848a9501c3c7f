// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for crudkv-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Endpoint EndpointConfig  `koanf:"endpoint"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
	Debug    DebugSection    `koanf:"debug"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is the per-client-IP request rate (requests/second).
	// Zero disables rate limiting.
	RateLimit int `koanf:"rate_limit"`

	// TrustedProxies lists the CIDRs (or bare addresses) of reverse proxies
	// whose X-Forwarded-For and X-Real-IP headers name the client. Requests
	// from any other peer are identified by their socket address.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// CORSAllowedOrigins lists allowed CORS origins. Empty disables CORS
	// headers; "*" allows any origin.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// AdminEnabled exposes /admin/v1/*.
	AdminEnabled bool `koanf:"admin_enabled"`

	// MaxBodyBytes bounds request bodies on the collection routes.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// EndpointConfig describes the single exposed collection.
type EndpointConfig struct {
	// Name is the collection path segment: /<name> and /<name>/{id}.
	Name string `koanf:"name"`

	// FullCollection makes GET /<name> return id -> value instead of ids.
	FullCollection bool `koanf:"full_collection"`

	// AllowPost enables server-assigned creation via POST /<name>.
	AllowPost bool `koanf:"allow_post"`

	// ContentType is the media type accepted on POST/PUT and returned on GET.
	ContentType string `koanf:"content_type"`
}

// StorageSection configures storage behavior.
type StorageSection struct {
	Engine      string        `koanf:"engine"`
	DataDir     string        `koanf:"data_dir"`
	SyncWrites  bool          `koanf:"sync_writes"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	LockStripes int           `koanf:"lock_stripes"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// EncryptionKey seals backup streams when set.
	EncryptionKey string `koanf:"encryption_key"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DebugSection configures diagnostics.
type DebugSection struct {
	// Gops starts the gops agent for live process inspection.
	Gops bool `koanf:"gops"`
}
