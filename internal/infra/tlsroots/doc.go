// Package tlsroots loads TLS material for the server and the CLI.
//
//   - roots.go: trust pool built from the system roots plus a CA file
//   - reloader.go: serving certificate reloaded on file change (fsnotify)
package tlsroots
