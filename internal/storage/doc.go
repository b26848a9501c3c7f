// Package storage provides the record store behind the CRUD façade.
//
// An Engine maps opaque string identifiers to opaque byte values and keeps
// them in one of three backends:
//
//   - badger: LSM tree with a value log (default), background value-log GC
//   - bbolt: single-file B+ tree at <dir>/crudkv.db
//   - memory: sharded in-process map, lost on Close
//
// Guarantees:
//
//   - Durability: with sync writes on, Put and Delete return only after the
//     backend has committed and fsynced the change
//   - Atomicity: a reader sees either the old or the new value of a record
//   - Isolation: Put and Delete on one identifier are serialized; Keys and
//     Entries read from a single snapshot
//
// Every error matches exactly one of ErrInitialization, ErrWrite,
// ErrNotFound or ErrFault with errors.Is.
//
// Backup and Restore move the whole store through a checksummed frame stream,
// optionally sealed with pkg/crypto/adaptive.
package storage
