// Package handler provides the HTTP handlers for crudkv.
//
// Collection routes map HTTP verbs onto the resource service:
//
//	GET    /<collection>       list identifiers (or id -> value)
//	POST   /<collection>       create with a server-assigned identifier
//	GET    /<collection>/{id}  read the raw value
//	PUT    /<collection>/{id}  create or replace
//	DELETE /<collection>/{id}  delete
//
// Collection responses are bare JSON or raw bytes. Health and admin routes
// use the Response envelope. Every error is a small {code, message} body
// with an X-Error-Code header.
package handler
