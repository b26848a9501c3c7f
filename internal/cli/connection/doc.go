// Package connection talks to a crudkv server over HTTP.
//
// Manager resolves the target server and collection from global flags;
// HTTPClient issues the requests and turns {code, message} error bodies
// into *APIError values.
package connection
