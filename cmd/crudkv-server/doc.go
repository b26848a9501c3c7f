// Package main provides the entry point for crudkv-server.
//
// crudkv-server serves one key-value collection over HTTP: clients POST,
// GET, PUT and DELETE opaque byte payloads under /<collection>/<id>.
//
// Usage:
//
//	crudkv-server -config /etc/crudkv/server.yaml
//
// Every setting can also be given through CRUDKV_* environment variables,
// e.g. CRUDKV_STORAGE_DATA_DIR=/var/lib/crudkv.
package main
