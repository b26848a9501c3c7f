// Package metric provides Prometheus metrics for crudkv.
//
// A Registry owns a private prometheus.Registry holding the HTTP request
// metrics, the storage operation metrics, and the Go runtime and process
// collectors. It is exposed at /metrics via Handler.
package metric
