package storage

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Engine matches exactly one of these
// via errors.Is.
var (
	// ErrInitialization means the backing store is unusable: it could not be
	// opened, or the engine has been closed.
	ErrInitialization = errors.New("storage: initialization error")

	// ErrWrite means a Put or Delete could not be committed. The prior value
	// (or absence) is still what readers observe.
	ErrWrite = errors.New("storage: write error")

	// ErrNotFound means the identifier was never written or has been deleted.
	ErrNotFound = errors.New("storage: not found")

	// ErrFault is any other backing-medium failure.
	ErrFault = errors.New("storage: fault")
)

// Backend-level sentinels. Backends return these; the engine classifies them.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
	ErrInvalidID   = errors.New("identifier must not be empty")
)

// maxErrorIDLen bounds how much of an identifier an error message carries.
const maxErrorIDLen = 64

// Error describes a failed engine operation.
type Error struct {
	Op   string // put, get, delete, keys, ...
	ID   string // identifier, empty for store-wide operations
	Kind error  // one of ErrInitialization, ErrWrite, ErrNotFound, ErrFault
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Kind.Error() + ": " + e.Op
	switch {
	case len(e.ID) > maxErrorIDLen:
		msg += fmt.Sprintf(" %q...(%d bytes)", e.ID[:maxErrorIDLen], len(e.ID))
	case e.ID != "":
		msg += fmt.Sprintf(" %q", e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind sentinel of err, or nil if err is not a storage error.
func KindOf(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return nil
}

func newError(op, id string, kind, cause error) error {
	return &Error{Op: op, ID: id, Kind: kind, Err: cause}
}

// classify wraps a backend error for op. Write operations report ErrWrite for
// unexpected failures; read operations report ErrFault.
func classify(op, id string, write bool, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return newError(op, id, ErrNotFound, nil)
	case errors.Is(err, ErrClosed):
		return newError(op, id, ErrInitialization, err)
	case write:
		return newError(op, id, ErrWrite, err)
	default:
		return newError(op, id, ErrFault, err)
	}
}
