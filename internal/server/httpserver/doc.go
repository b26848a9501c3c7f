// Package httpserver provides the HTTP/HTTPS server for crudkv.
//
// NewRouter assembles the collection handler, /metrics and the middleware
// chain (request ID, panic recovery, trailing-slash stripping, access log,
// metrics, per-IP rate limiting and CORS). Server wraps net/http.Server with
// timeouts and optional TLS.
package httpserver
