// Package domain defines the resource model and the coded errors shared by
// the service layer and the HTTP adapter.
//
// A resource is an opaque byte payload stored under an identifier. Errors
// carry a stable code of the form CRUD-<AREA>-<NNNN>; the last three digits
// of the numeric part are the HTTP status the adapter reports.
package domain
