// Package confloader loads configuration with koanf.
//
// Sources, later overriding earlier:
//
//  1. Values already set on the target struct (defaults)
//  2. Configuration file (YAML or TOML, chosen by extension)
//  3. Environment variables (CRUDKV_ prefix)
//
// Watcher reports changes to the configuration file via fsnotify.
package confloader
