// Package model defines the core data types shared across the rotation
// engine: proxy records, sources, the favorites set, rotation history,
// and the rotation state snapshot.
//
// Types in this package are plain values with no I/O. Persistence,
// network probing, and scheduling live in their own packages and operate
// on these types.
package model
