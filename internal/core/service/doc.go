// Package service implements the resource operations behind the HTTP
// adapter.
//
// ResourceService sits between the transport and the storage engine: it
// allocates identifiers for new resources and translates storage error kinds
// into coded domain errors. It holds no state of its own and is safe for
// concurrent use.
package service
