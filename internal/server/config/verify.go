package config

import (
	"errors"
	"fmt"
	"mime"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/yndnr/crudkv-go/internal/core/domain"
	"github.com/yndnr/crudkv-go/pkg/crypto/adaptive"
)

// maxLockStripes bounds storage.lock_stripes.
const maxLockStripes = 1 << 16

var (
	validEngines    = []string{"badger", "bbolt", "memory"}
	validLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"json", "text", "console"}
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyHTTP(&cfg.Server.HTTP),
		verifyEndpoint(&cfg.Endpoint),
		verifyStorage(&cfg.Storage),
		verifySecurity(&cfg.Security),
		verifyLog(&cfg.Log),
	)
}

func verifyHTTP(cfg *HTTPConfig) error {
	var errs []error

	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr %q: %w", cfg.Addr, err))
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	for _, f := range []string{cfg.TLSCertFile, cfg.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("server.http tls file: %w", err))
		}
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("server.http.rate_limit must not be negative"))
	}
	if _, err := cfg.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.http.max_body_bytes must be positive"))
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.http timeouts must not be negative"))
	}

	return errors.Join(errs...)
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as a
// single-host prefix.
func (cfg *HTTPConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cfg.TrustedProxies))
	for _, s := range cfg.TrustedProxies {
		s = strings.TrimSpace(s)
		if !strings.Contains(s, "/") {
			addr, err := netip.ParseAddr(s)
			if err != nil {
				return nil, fmt.Errorf("server.http.trusted_proxies %q: %w", s, err)
			}
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("server.http.trusted_proxies %q: %w", s, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

func verifyEndpoint(cfg *EndpointConfig) error {
	var errs []error

	if !domain.ValidCollectionName(cfg.Name) {
		errs = append(errs, fmt.Errorf("endpoint.name %q must be a single non-empty path segment", cfg.Name))
	}
	switch cfg.Name {
	case "health", "ready", "metrics", "admin":
		errs = append(errs, fmt.Errorf("endpoint.name %q collides with a built-in route", cfg.Name))
	}
	if _, _, err := mime.ParseMediaType(cfg.ContentType); err != nil {
		errs = append(errs, fmt.Errorf("endpoint.content_type %q: %w", cfg.ContentType, err))
	}

	return errors.Join(errs...)
}

func verifyStorage(cfg *StorageSection) error {
	var errs []error

	if !oneOf(cfg.Engine, validEngines) {
		errs = append(errs, fmt.Errorf("storage.engine %q must be one of %s", cfg.Engine, strings.Join(validEngines, ", ")))
	}
	if cfg.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	} else if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		errs = append(errs, fmt.Errorf("cannot create data directory: %w", err))
	}
	switch n := cfg.LockStripes; {
	case n < 0:
		errs = append(errs, errors.New("storage.lock_stripes must not be negative"))
	case n > maxLockStripes:
		errs = append(errs, fmt.Errorf("storage.lock_stripes must be at most %d", maxLockStripes))
	case n&(n-1) != 0:
		errs = append(errs, fmt.Errorf("storage.lock_stripes %d must be a power of two", n))
	}
	if cfg.GCInterval < 0 {
		errs = append(errs, errors.New("storage.gc_interval must not be negative"))
	}

	return errors.Join(errs...)
}

func verifySecurity(cfg *SecuritySection) error {
	if cfg.EncryptionKey != "" && len(cfg.EncryptionKey) < adaptive.MinSecretSize {
		return fmt.Errorf("security.encryption_key must be at least %d bytes", adaptive.MinSecretSize)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if !oneOf(strings.ToLower(cfg.Level), validLogLevels) {
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", cfg.Level))
	}
	if !oneOf(strings.ToLower(cfg.Format), validLogFormats) {
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", cfg.Format))
	}
	return errors.Join(errs...)
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
