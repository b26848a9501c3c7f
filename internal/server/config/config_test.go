package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *ServerConfig {
	t.Helper()
	cfg := Default()
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.Server.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Server.HTTP.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("HTTP.MaxBodyBytes = %d, want %d", cfg.Server.HTTP.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if cfg.Server.HTTP.ShutdownTimeout != 30*time.Second {
		t.Errorf("HTTP.ShutdownTimeout = %v, want 30s", cfg.Server.HTTP.ShutdownTimeout)
	}

	if cfg.Endpoint.Name != "resources" {
		t.Errorf("Endpoint.Name = %q, want resources", cfg.Endpoint.Name)
	}
	if cfg.Endpoint.FullCollection {
		t.Error("FullCollection should be disabled by default")
	}
	if !cfg.Endpoint.AllowPost {
		t.Error("AllowPost should be enabled by default")
	}
	if cfg.Endpoint.ContentType != "application/octet-stream" {
		t.Errorf("Endpoint.ContentType = %q", cfg.Endpoint.ContentType)
	}

	if cfg.Storage.Engine != DefaultEngine {
		t.Errorf("Storage.Engine = %q, want %q", cfg.Storage.Engine, DefaultEngine)
	}
	if cfg.Storage.DataDir != DefaultDataDir {
		t.Errorf("DataDir = %q, want %q", cfg.Storage.DataDir, DefaultDataDir)
	}
	if !cfg.Storage.SyncWrites {
		t.Error("SyncWrites should be enabled by default")
	}

	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, DefaultLogFormat)
	}
	if cfg.Debug.Gops {
		t.Error("gops should be disabled by default")
	}
}

func TestSanitize(t *testing.T) {
	cfg := &ServerConfig{
		Security: SecuritySection{
			EncryptionKey: "super-secret-key-1234567890",
		},
	}

	sanitized := Sanitize(cfg)

	if cfg.Security.EncryptionKey != "super-secret-key-1234567890" {
		t.Error("Original config should not be modified")
	}
	if sanitized.Security.EncryptionKey == cfg.Security.EncryptionKey {
		t.Error("Sanitized config should mask the encryption key")
	}
	if len(sanitized.Security.EncryptionKey) != len(cfg.Security.EncryptionKey) {
		t.Errorf("Masked key length = %d, want %d", len(sanitized.Security.EncryptionKey), len(cfg.Security.EncryptionKey))
	}
}

func TestSanitize_EmptyKey(t *testing.T) {
	sanitized := Sanitize(&ServerConfig{})
	if sanitized.Security.EncryptionKey != "" {
		t.Error("Empty key should remain empty")
	}
}

func TestSanitize_CopiesOrigins(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTP.CORSAllowedOrigins = []string{"https://a.example"}

	sanitized := Sanitize(cfg)
	sanitized.Server.HTTP.CORSAllowedOrigins[0] = "changed"

	if cfg.Server.HTTP.CORSAllowedOrigins[0] != "https://a.example" {
		t.Error("Sanitize should not share slices with the original")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a", "****"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"abcdef", "ab**ef"},
		{"1234567890", "12******90"},
	}

	for _, tt := range tests {
		if got := maskSecret(tt.input); got != tt.expected {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestVerify_ValidConfig(t *testing.T) {
	if err := Verify(validConfig(t)); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerify_CreateDataDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "nested", "data")

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := os.Stat(cfg.Storage.DataDir); err != nil {
		t.Errorf("data dir was not created: %v", err)
	}
}

func TestVerify_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		want   string
	}{
		{"bad addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "no-port" }, "server.http.addr"},
		{"half tls", func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "cert.pem" }, "tls_key_file"},
		{"negative rate", func(c *ServerConfig) { c.Server.HTTP.RateLimit = -1 }, "rate_limit"},
		{"bad proxy", func(c *ServerConfig) { c.Server.HTTP.TrustedProxies = []string{"10.0.0.0/8", "proxy.local"} }, "trusted_proxies"},
		{"bad proxy prefix", func(c *ServerConfig) { c.Server.HTTP.TrustedProxies = []string{"10.0.0.0/40"} }, "trusted_proxies"},
		{"zero body limit", func(c *ServerConfig) { c.Server.HTTP.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"empty name", func(c *ServerConfig) { c.Endpoint.Name = "" }, "endpoint.name"},
		{"nested name", func(c *ServerConfig) { c.Endpoint.Name = "a/b" }, "endpoint.name"},
		{"dot name", func(c *ServerConfig) { c.Endpoint.Name = ".." }, "endpoint.name"},
		{"reserved name", func(c *ServerConfig) { c.Endpoint.Name = "metrics" }, "built-in route"},
		{"bad media type", func(c *ServerConfig) { c.Endpoint.ContentType = "not a type" }, "endpoint.content_type"},
		{"unknown engine", func(c *ServerConfig) { c.Storage.Engine = "leveldb" }, "storage.engine"},
		{"empty data dir", func(c *ServerConfig) { c.Storage.DataDir = "" }, "storage.data_dir"},
		{"negative stripes", func(c *ServerConfig) { c.Storage.LockStripes = -1 }, "storage.lock_stripes"},
		{"odd stripes", func(c *ServerConfig) { c.Storage.LockStripes = 100 }, "power of two"},
		{"huge stripes", func(c *ServerConfig) { c.Storage.LockStripes = 1 << 20 }, "at most"},
		{"short key", func(c *ServerConfig) { c.Security.EncryptionKey = "short" }, "encryption_key"},
		{"bad level", func(c *ServerConfig) { c.Log.Level = "verbose" }, "log.level"},
		{"bad format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestVerify_LockStripes(t *testing.T) {
	for _, n := range []int{0, 1, 2, 64, 1024, maxLockStripes} {
		cfg := validConfig(t)
		cfg.Storage.LockStripes = n
		if err := Verify(cfg); err != nil {
			t.Errorf("Verify(lock_stripes=%d) error = %v", n, err)
		}
	}
}

func TestHTTPConfig_TrustedProxyPrefixes(t *testing.T) {
	cfg := HTTPConfig{TrustedProxies: []string{" 10.1.2.3/8 ", "192.0.2.7", "::ffff:198.51.100.1", "2001:db8::/32"}}

	prefixes, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		t.Fatalf("TrustedProxyPrefixes() error = %v", err)
	}
	want := []string{"10.0.0.0/8", "192.0.2.7/32", "198.51.100.1/32", "2001:db8::/32"}
	if len(prefixes) != len(want) {
		t.Fatalf("got %d prefixes, want %d", len(prefixes), len(want))
	}
	for i, p := range prefixes {
		if p.String() != want[i] {
			t.Errorf("prefix[%d] = %s, want %s", i, p, want[i])
		}
	}

	empty, err := (&HTTPConfig{}).TrustedProxyPrefixes()
	if err != nil || len(empty) != 0 {
		t.Errorf("empty list = %v, %v", empty, err)
	}
}

func TestVerify_ReportsAllProblems(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Engine = "leveldb"
	cfg.Log.Level = "verbose"

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() should fail")
	}
	for _, want := range []string{"storage.engine", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Verify() error = %v, missing %q", err, want)
		}
	}
}

func TestVerify_DataDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}

	cfg := validConfig(t)
	cfg.Storage.DataDir = file
	if err := Verify(cfg); err == nil {
		t.Error("Verify() should fail when data_dir is a regular file")
	}
}
