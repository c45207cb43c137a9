// Package rotation runs the background loop that periodically selects
// and applies a new egress point. The scheduler is a small state
// machine (Idle, Running, Stopped) with cooperative cancellation; a
// cycle that finds no working candidate retries on a fixed delay
// instead of consuming an interval slot.
package rotation
