// Package config holds crudkv-cli's local settings file.
//
// The file (~/.crudkv/cli.yaml by default) supplies defaults for global
// flags that are not given on the command line or in the environment.
package config
