// Package config provides server configuration for crudkv.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation (address syntax, endpoint name, engine, paths)
//   - sanitize.go: masking of secrets before the config is logged
//
// Configuration is loaded via internal/infra/confloader from a YAML or TOML
// file and CRUDKV_ environment variables.
package config
