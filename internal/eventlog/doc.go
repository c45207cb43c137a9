// Package eventlog persists rotation events to SQLite. The log is
// append-only and outlives the JSON state files, so it answers "what
// egress was active at 3am" long after the history cap dropped the
// entry.
package eventlog
