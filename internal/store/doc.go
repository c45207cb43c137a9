// Package store provides the key-value persistence capability the
// rotation engine depends on: load bytes by key, save bytes by key.
//
// The engine does not care how bytes are persisted. FileStore is the
// production implementation, one file per key under a root directory.
// Tests substitute in-memory implementations.
package store
