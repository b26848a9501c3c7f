// Package command defines the crudkv-cli commands on top of urfave/cli/v2.
//
//   - root.go: App, global flags, connection setup
//   - resource.go: list, get, put, create, delete
//   - system.go: health, status, gc
//   - backup.go: backup and restore
//   - config.go: server and cli configuration
//
// Commands write results to App.Writer and progress to App.ErrWriter.
package command
