// Package relay exposes the stable local endpoint downstream clients
// point at. The listener address never changes while the real egress
// rotates behind it; GET / reports the current egress snapshot.
package relay
