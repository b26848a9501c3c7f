// Package logger provides structured logging for crudkv.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, construction and the global level
//   - context.go: context propagation of loggers and request IDs
//   - redact.go: masking of attributes whose key names look secret
//
// The level is held in a shared slog.LevelVar so it can be changed at
// runtime when the configuration file is reloaded.
package logger
