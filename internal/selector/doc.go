// Package selector picks a working egress candidate from the current
// pool. Favorites take precedence over latency ordering, the candidate
// list is capped and shuffled, and candidates are probed sequentially
// until one answers.
package selector
