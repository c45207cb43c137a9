// Package pool fetches candidate egress points from the active source,
// filters them against the configured policy, and maintains the working
// pool.
//
// Three sources exist: a JSON proxy-list API, a local text file, and the
// Tor network. The pool is rebuilt wholesale on every fetch and
// deduplicated by (host, port); it is never incrementally merged.
// Favorite flags are re-derived on each fetch by membership test against
// the favorites set.
package pool
