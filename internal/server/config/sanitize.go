package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Server.HTTP.CORSAllowedOrigins = append([]string(nil), cfg.Server.HTTP.CORSAllowedOrigins...)
	sanitized.Server.HTTP.TrustedProxies = append([]string(nil), cfg.Server.HTTP.TrustedProxies...)

	if sanitized.Security.EncryptionKey != "" {
		sanitized.Security.EncryptionKey = maskSecret(sanitized.Security.EncryptionKey)
	}

	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
